package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

// assistantTools строит набор инструментов ассистента: чтение журнала,
// отчеты, прогноз, анализ безубыточности и операции обслуживания.
// Идентификатор пользователя в схемы не входит — его подставляет код.
func assistantTools() []openai.Tool {
	categoryEnum := []string{string(model.CategoryIncome), string(model.CategoryExpense)}
	dateDesc := "Дата в формате YYYY-MM-DD."

	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_transactions",
				Description: "Возвращает транзакции пользователя с необязательными фильтрами.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"category":    {Type: jsonschema.String, Enum: categoryEnum},
						"subcategory": {Type: jsonschema.String},
						"start_date":  {Type: jsonschema.String, Description: dateDesc},
						"end_date":    {Type: jsonschema.String, Description: dateDesc},
						"limit":       {Type: jsonschema.Integer, Description: "Максимум записей, по умолчанию 100."},
					},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "generate_pl",
				Description: "Строит отчет о прибылях и убытках за период.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"start_date": {Type: jsonschema.String, Description: dateDesc},
						"end_date":   {Type: jsonschema.String, Description: dateDesc},
					},
					Required: []string{"start_date", "end_date"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_category_breakdown",
				Description: "Детализация по категории (и, опционально, подкатегории) за период.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"category":    {Type: jsonschema.String, Enum: categoryEnum},
						"subcategory": {Type: jsonschema.String},
						"start_date":  {Type: jsonschema.String, Description: dateDesc},
						"end_date":    {Type: jsonschema.String, Description: dateDesc},
					},
					Required: []string{"category", "start_date", "end_date"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "forecast_revenue",
				Description: "Линейный прогноз доходов на указанное число месяцев вперед.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"months": {Type: jsonschema.Integer, Description: "Горизонт прогноза в месяцах, по умолчанию 3."},
					},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "break_even_analysis",
				Description: "Сравнивает средние месячные доходы и расходы за скользящее окно.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"months": {Type: jsonschema.Integer, Description: "Длина окна в месяцах, по умолчанию 3."},
					},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "delete_last_transaction",
				Description: "Удаляет самую свежую транзакцию пользователя.",
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: map[string]jsonschema.Definition{},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "clear_user_data",
				Description: "Удаляет ВСЮ историю пользователя. Требует явного подтверждения.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"confirmed": {
							Type:        jsonschema.Boolean,
							Description: "Должно быть true. Без подтверждения пользователя ничего не удаляется.",
						},
					},
					Required: []string{"confirmed"},
				},
			},
		},
	}
}

// dispatchTool выполняет вызов инструмента и возвращает результат в JSON.
// Ошибка выполнения тоже возвращается как JSON: модель сможет объяснить
// её пользователю вместо обрыва диалога.
func (a *Assistant) dispatchTool(ctx context.Context, userID string, call openai.ToolCall) string {
	result, err := a.executeTool(ctx, userID, call.Function.Name, call.Function.Arguments)
	if err != nil {
		a.log.Warn().Err(err).Str("tool", call.Function.Name).Msg("ошибка выполнения инструмента")
		result = map[string]string{"error": err.Error()}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return `{"error":"failed to encode tool result"}`
	}
	return string(data)
}

func (a *Assistant) executeTool(ctx context.Context, userID, name, rawArgs string) (any, error) {
	switch name {
	case "get_transactions":
		var args struct {
			Category    string `json:"category"`
			Subcategory string `json:"subcategory"`
			StartDate   string `json:"start_date"`
			EndDate     string `json:"end_date"`
			Limit       int    `json:"limit"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad arguments: %w", err)
		}
		filter := repository.TransactionFilter{
			Category:    model.Category(args.Category),
			Subcategory: args.Subcategory,
			StartDate:   parseDate(args.StartDate),
			EndDate:     parseDate(args.EndDate),
			Limit:       args.Limit,
		}
		if filter.Limit <= 0 {
			filter.Limit = 100
		}
		transactions, err := a.tracker.RecentTransactions(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		return map[string]any{"transactions": transactions, "total": len(transactions)}, nil

	case "generate_pl":
		var args struct {
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad arguments: %w", err)
		}
		start, end, err := parsePeriod(args.StartDate, args.EndDate)
		if err != nil {
			return nil, err
		}
		return a.analytics.GeneratePL(ctx, userID, start, end)

	case "get_category_breakdown":
		var args struct {
			Category    string `json:"category"`
			Subcategory string `json:"subcategory"`
			StartDate   string `json:"start_date"`
			EndDate     string `json:"end_date"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad arguments: %w", err)
		}
		start, end, err := parsePeriod(args.StartDate, args.EndDate)
		if err != nil {
			return nil, err
		}
		return a.analytics.GetCategoryBreakdown(ctx, userID, model.Category(args.Category), args.Subcategory, start, end)

	case "forecast_revenue":
		var args struct {
			Months int `json:"months"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad arguments: %w", err)
		}
		if args.Months <= 0 {
			args.Months = 3
		}
		return a.analytics.ForecastRevenue(ctx, userID, args.Months)

	case "break_even_analysis":
		var args struct {
			Months int `json:"months"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad arguments: %w", err)
		}
		if args.Months <= 0 {
			args.Months = 3
		}
		return a.analytics.BreakEvenAnalysis(ctx, userID, args.Months, service.BreakEvenOptions{})

	case "delete_last_transaction":
		deleted, err := a.tracker.DeleteLastTransaction(ctx, userID)
		if err != nil {
			return nil, err
		}
		if deleted == nil {
			return map[string]any{"success": false, "message": "нет транзакций для удаления"}, nil
		}
		return map[string]any{
			"success":     true,
			"amount":      deleted.Amount,
			"description": deleted.Description,
		}, nil

	case "clear_user_data":
		var args struct {
			Confirmed bool `json:"confirmed"`
		}
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad arguments: %w", err)
		}
		if !args.Confirmed {
			return map[string]any{"success": false, "message": "требуется подтверждение пользователя"}, nil
		}
		count, err := a.tracker.ClearUserData(ctx, userID, true)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "count": count}, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return nil
		}
	}
	return &t
}

func parsePeriod(start, end string) (time.Time, time.Time, error) {
	startDate := parseDate(start)
	endDate := parseDate(end)
	if startDate == nil || endDate == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date and end_date must be YYYY-MM-DD")
	}
	// Конец периода включительно: расширяем до конца дня
	return *startDate, endDate.Add(24*time.Hour - time.Nanosecond), nil
}
