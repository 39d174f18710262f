package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

// maxToolRounds ограничивает число циклов вызова инструментов за один вопрос
const maxToolRounds = 5

// Assistant отвечает на вопросы о финансах через tool-calling:
// модель сама решает, какие данные запросить, наш код выполняет
// запросы и возвращает результаты в диалог.
type Assistant struct {
	client    *openai.Client
	model     string
	tracker   *service.FinanceTracker
	analytics *service.Analytics
	log       zerolog.Logger
}

func NewAssistant(client *openai.Client, model string, tracker *service.FinanceTracker, analytics *service.Analytics, log zerolog.Logger) *Assistant {
	return &Assistant{
		client:    client,
		model:     model,
		tracker:   tracker,
		analytics: analytics,
		log:       log,
	}
}

const assistantSystemPrompt = `Ты — финансовый ассистент владельца малого бизнеса.

У тебя есть доступ к его журналу транзакций через инструменты. Ты можешь:
- отвечать на вопросы о доходах и расходах;
- строить отчеты о прибылях и убытках;
- давать прогноз доходов и анализ безубыточности;
- подсказывать, куда уходят деньги.

Правила ответов:
1. Сначала получи данные инструментами, затем делай выводы.
2. Отвечай по-русски, кратко и по делу.
3. Суммы форматируй с "руб.".

ПРАВИЛА БЕЗОПАСНОСТИ:
1. Перед clear_user_data обязательно запроси явное подтверждение
   ("Напишите ДА УДАЛИТЬ") и вызывай инструмент только с confirmed=true
   после такого подтверждения.
2. delete_last_transaction можно вызывать без двойного подтверждения,
   если намерение очевидно, но обязательно сообщи, что именно удалено.`

// Answer отвечает на вопрос пользователя, при необходимости выполняя
// инструменты. Цикл ограничен maxToolRounds, чтобы зациклившаяся модель
// не держала диалог бесконечно.
func (a *Assistant) Answer(ctx context.Context, userID, question string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: assistantSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: question},
	}
	tools := assistantTools()

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return "", fmt.Errorf("assistant request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("assistant returned no choices")
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			a.log.Debug().
				Str("user_id", userID).
				Str("tool", call.Function.Name).
				Msg("ассистент вызывает инструмент")

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    a.dispatchTool(ctx, userID, call),
			})
		}
	}

	return "", fmt.Errorf("assistant exceeded %d tool rounds", maxToolRounds)
}
