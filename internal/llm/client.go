package llm

import (
	"github.com/sashabaranov/go-openai"
)

// NewClient создает клиент OpenAI-совместимого API.
// baseURL позволяет подключить совместимый прокси или альтернативного провайдера.
func NewClient(apiKey, baseURL string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}
