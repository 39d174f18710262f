package main

import (
	"context"

	"github.com/Eikhinson/telegram-finance-bot/internal/bot"
	"github.com/Eikhinson/telegram-finance-bot/internal/config"
	"github.com/Eikhinson/telegram-finance-bot/internal/llm"
	"github.com/Eikhinson/telegram-finance-bot/internal/logger"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

// Request — структура входящего запроса от API Gateway
type Request struct {
	Body string `json:"body"`
}

// Response — структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Handler обрабатывает webhook-обновление Telegram в serverless-окружении
func Handler(ctx context.Context, request Request) (*Response, error) {
	log := logger.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		return errorResponse(err)
	}

	var repo repository.Repository
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pg, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return errorResponse(err)
		}
		defer pg.Close()
		repo = pg
	case config.StorageSupabase:
		sb, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return errorResponse(err)
		}
		repo = sb
	}

	tracker := service.NewFinanceTracker(repo, log)
	analytics := service.NewAnalytics(repo, log)

	client := llm.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	categorizer := llm.NewCategorizer(client, cfg.OpenAIModel)
	assistant := llm.NewAssistant(client, cfg.OpenAIModel, tracker, analytics, log)
	transcriber := llm.NewTranscriber(client)

	b, err := bot.NewBot(cfg.TelegramToken, tracker, analytics, categorizer, assistant, transcriber, log)
	if err != nil {
		return errorResponse(err)
	}

	if err := b.HandleWebhook([]byte(request.Body)); err != nil {
		return errorResponse(err)
	}

	return &Response{
		StatusCode: 200,
		Body:       "",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func errorResponse(err error) (*Response, error) {
	return &Response{
		StatusCode: 500,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func main() {
	// Точка входа для локального тестирования
}
