package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/shopspring/decimal"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
)

// Categorizer извлекает структурированные транзакции из свободного текста.
// Вся языковая работа делегирована LLM: наш код только строит схему
// инструмента и разбирает аргументы вызова.
type Categorizer struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewCategorizer(client *openai.Client, model string) *Categorizer {
	return &Categorizer{
		client: client,
		model:  model,
		now:    time.Now,
	}
}

// ParsedTransaction — транзакция, извлеченная моделью из сообщения
type ParsedTransaction struct {
	Category    model.Category
	Subcategory string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

// recordTransactionsTool строит определение инструмента записи транзакций.
// Закрытые наборы подкатегорий внедряются в схему как enum, чтобы модель
// не могла выдумать подкатегорию вне справочника.
func recordTransactionsTool() openai.Tool {
	subcategories := make([]string, 0, len(model.IncomeSubcategories)+len(model.ExpenseSubcategories))
	subcategories = append(subcategories, model.IncomeSubcategories...)
	subcategories = append(subcategories, model.ExpenseSubcategories...)

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        "record_transactions",
			Description: "Записывает все финансовые операции, упомянутые в сообщении пользователя.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"transactions": {
						Type:        jsonschema.Array,
						Description: "Все операции из сообщения, каждая отдельным элементом.",
						Items: &jsonschema.Definition{
							Type: jsonschema.Object,
							Properties: map[string]jsonschema.Definition{
								"category": {
									Type:        jsonschema.String,
									Enum:        []string{string(model.CategoryIncome), string(model.CategoryExpense)},
									Description: "income для поступлений, expense для трат.",
								},
								"subcategory": {
									Type:        jsonschema.String,
									Enum:        subcategories,
									Description: "Подкатегория из справочника, соответствующая категории.",
								},
								"amount": {
									Type:        jsonschema.Number,
									Description: "Сумма операции, всегда положительная.",
								},
								"date": {
									Type:        jsonschema.String,
									Description: "Дата операции (YYYY-MM-DD). Если не названа — сегодняшняя.",
								},
								"description": {
									Type:        jsonschema.String,
									Description: "Краткое описание без сумм и дат.",
								},
							},
							Required: []string{"category", "subcategory", "amount", "date", "description"},
						},
					},
				},
				Required: []string{"transactions"},
			},
		},
	}
}

func (c *Categorizer) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("Ты — эксперт по категоризации финансовых операций малого бизнеса.\n")
	sb.WriteString(fmt.Sprintf("Сегодня %s.\n\n", c.now().Format("2006-01-02")))
	sb.WriteString("Пользователь может упомянуть НЕСКОЛЬКО операций в одном сообщении — извлеки ВСЕ.\n")
	sb.WriteString("Для каждой операции определи категорию (income/expense), подбери подкатегорию из справочника, выдели сумму, дату и краткое описание.\n\n")
	sb.WriteString("Подкатегории доходов: " + strings.Join(model.IncomeSubcategories, ", ") + ".\n")
	sb.WriteString("Подкатегории расходов: " + strings.Join(model.ExpenseSubcategories, ", ") + ".\n\n")
	sb.WriteString("Примеры:\n")
	sb.WriteString("«Получил 50000 от клиента, заплатил аренду 30000 и зарплату 100000» — три операции: income/services 50000, expense/rent 30000, expense/salaries 100000.\n")
	sb.WriteString("«Доход 200к консалтинг, расход 50к маркетинг» — income/consulting 200000, expense/marketing 50000.\n\n")
	sb.WriteString("«к» и «тыс» означают тысячи: 50к = 50000.")
	return sb.String()
}

// ExtractTransactions просит модель разобрать сообщение и возвращает
// все найденные в нем операции.
func (c *Categorizer) ExtractTransactions(ctx context.Context, text string) ([]ParsedTransaction, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Tools: []openai.Tool{recordTransactionsTool()},
		// Вызов инструмента обязателен: свободный текст в ответе бесполезен
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: "record_transactions"},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("categorization request failed: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("model returned no tool call")
	}

	var args struct {
		Transactions []struct {
			Category    string  `json:"category"`
			Subcategory string  `json:"subcategory"`
			Amount      float64 `json:"amount"`
			Date        string  `json:"date"`
			Description string  `json:"description"`
		} `json:"transactions"`
	}
	raw := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	parsed := make([]ParsedTransaction, 0, len(args.Transactions))
	for _, t := range args.Transactions {
		date, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			date = c.now()
		}
		parsed = append(parsed, ParsedTransaction{
			Category:    model.Category(t.Category),
			Subcategory: t.Subcategory,
			Amount:      decimal.NewFromFloat(t.Amount),
			Date:        date,
			Description: t.Description,
		})
	}
	return parsed, nil
}
