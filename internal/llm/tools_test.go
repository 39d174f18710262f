package llm

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

type memoryRepo struct {
	transactions []model.Transaction
}

func (m *memoryRepo) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	m.transactions = append(m.transactions, *transaction)
	return nil
}

func (m *memoryRepo) GetTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error) {
	var result []model.Transaction
	for _, t := range m.transactions {
		if t.UserID != userID {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.Subcategory != "" && t.Subcategory != filter.Subcategory {
			continue
		}
		if filter.StartDate != nil && t.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && t.Date.After(*filter.EndDate) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *memoryRepo) DeleteLastTransaction(ctx context.Context, userID string) (*model.Transaction, error) {
	last := -1
	for i, t := range m.transactions {
		if t.UserID != userID {
			continue
		}
		if last == -1 || t.Date.After(m.transactions[last].Date) {
			last = i
		}
	}
	if last == -1 {
		return nil, nil
	}
	deleted := m.transactions[last]
	m.transactions = append(m.transactions[:last], m.transactions[last+1:]...)
	return &deleted, nil
}

func (m *memoryRepo) DeleteAllTransactions(ctx context.Context, userID string) (int64, error) {
	var kept []model.Transaction
	var count int64
	for _, t := range m.transactions {
		if t.UserID == userID {
			count++
			continue
		}
		kept = append(kept, t)
	}
	m.transactions = kept
	return count, nil
}

func newTestAssistant(repo repository.Repository) *Assistant {
	log := zerolog.Nop()
	return &Assistant{
		tracker:   service.NewFinanceTracker(repo, log),
		analytics: service.NewAnalytics(repo, log),
		log:       log,
	}
}

func TestAssistantToolsSchema(t *testing.T) {
	tools := assistantTools()

	want := []string{
		"get_transactions",
		"generate_pl",
		"get_category_breakdown",
		"forecast_revenue",
		"break_even_analysis",
		"delete_last_transaction",
		"clear_user_data",
	}
	if len(tools) != len(want) {
		t.Fatalf("len(tools) = %d, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Function.Name != name {
			t.Errorf("tools[%d] = %q, want %q", i, tools[i].Function.Name, name)
		}
		// user_id подставляет код, в схемы параметров он не входит
		data, err := json.Marshal(tools[i].Function.Parameters)
		if err != nil {
			t.Fatalf("marshal %s schema: %v", name, err)
		}
		if strings.Contains(string(data), "user_id") {
			t.Errorf("%s schema must not expose user_id", name)
		}
	}
}

func TestRecordTransactionsToolSchema(t *testing.T) {
	tool := recordTransactionsTool()
	if tool.Function.Name != "record_transactions" {
		t.Fatalf("tool name = %q", tool.Function.Name)
	}

	// Enum подкатегорий обязан покрывать весь справочник
	data, err := json.Marshal(tool.Function.Parameters)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	schema := string(data)
	for _, sub := range append(append([]string{}, model.IncomeSubcategories...), model.ExpenseSubcategories...) {
		if !strings.Contains(schema, `"`+sub+`"`) {
			t.Errorf("schema misses subcategory %q", sub)
		}
	}
}

func TestExecuteToolGetTransactions(t *testing.T) {
	repo := &memoryRepo{transactions: []model.Transaction{
		{ID: "1", UserID: "user1", Category: model.CategoryIncome, Subcategory: "sales", Amount: decimal.NewFromInt(100), Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", UserID: "user1", Category: model.CategoryExpense, Subcategory: "rent", Amount: decimal.NewFromInt(200), Date: time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "3", UserID: "user2", Category: model.CategoryIncome, Subcategory: "sales", Amount: decimal.NewFromInt(999), Date: time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)},
	}}
	a := newTestAssistant(repo)

	result, err := a.executeTool(context.Background(), "user1", "get_transactions", `{"category":"income"}`)
	if err != nil {
		t.Fatalf("executeTool: %v", err)
	}
	payload, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result type %T", result)
	}
	if payload["total"] != 1 {
		t.Errorf("total = %v, want 1 (only user1's income)", payload["total"])
	}
}

func TestExecuteToolGeneratePL(t *testing.T) {
	repo := &memoryRepo{transactions: []model.Transaction{
		{ID: "1", UserID: "user1", Category: model.CategoryIncome, Subcategory: "sales", Amount: decimal.NewFromInt(100), Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", UserID: "user1", Category: model.CategoryExpense, Subcategory: "rent", Amount: decimal.NewFromInt(60), Date: time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC)},
	}}
	a := newTestAssistant(repo)

	result, err := a.executeTool(context.Background(), "user1", "generate_pl", `{"start_date":"2025-07-01","end_date":"2025-07-31"}`)
	if err != nil {
		t.Fatalf("executeTool: %v", err)
	}
	report, ok := result.(*service.AggregateReport)
	if !ok {
		t.Fatalf("result type %T", result)
	}
	// Конец периода включительно: транзакция за полдень 31 июля учтена
	if got, want := report.NetProfit.String(), "40"; got != want {
		t.Errorf("NetProfit = %s, want %s", got, want)
	}
}

func TestExecuteToolClearRequiresConfirmation(t *testing.T) {
	repo := &memoryRepo{transactions: []model.Transaction{
		{ID: "1", UserID: "user1", Category: model.CategoryIncome, Subcategory: "sales", Amount: decimal.NewFromInt(100), Date: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
	}}
	a := newTestAssistant(repo)
	ctx := context.Background()

	result, err := a.executeTool(ctx, "user1", "clear_user_data", `{"confirmed":false}`)
	if err != nil {
		t.Fatalf("executeTool: %v", err)
	}
	payload := result.(map[string]any)
	if payload["success"] != false {
		t.Errorf("unconfirmed clear must not succeed: %v", payload)
	}
	if len(repo.transactions) != 1 {
		t.Error("unconfirmed clear must not touch data")
	}

	result, err = a.executeTool(ctx, "user1", "clear_user_data", `{"confirmed":true}`)
	if err != nil {
		t.Fatalf("executeTool: %v", err)
	}
	payload = result.(map[string]any)
	if payload["success"] != true || payload["count"] != int64(1) {
		t.Errorf("confirmed clear result: %v", payload)
	}
}

func TestExecuteToolDeleteLast(t *testing.T) {
	repo := &memoryRepo{}
	a := newTestAssistant(repo)

	result, err := a.executeTool(context.Background(), "user1", "delete_last_transaction", `{}`)
	if err != nil {
		t.Fatalf("executeTool: %v", err)
	}
	payload := result.(map[string]any)
	if payload["success"] != false {
		t.Errorf("empty history delete must report success=false: %v", payload)
	}
}

func TestExecuteToolUnknown(t *testing.T) {
	a := newTestAssistant(&memoryRepo{})

	if _, err := a.executeTool(context.Background(), "user1", "drop_database", `{}`); err == nil {
		t.Error("unknown tool must fail")
	}
}

func TestDispatchToolEncodesErrors(t *testing.T) {
	a := newTestAssistant(&memoryRepo{})

	out := a.dispatchTool(context.Background(), "user1", openai.ToolCall{
		Function: openai.FunctionCall{Name: "generate_pl", Arguments: `{"start_date":"not-a-date"}`},
	})
	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("tool error must still be valid JSON: %v", err)
	}
	if payload["error"] == "" {
		t.Errorf("error payload missing: %s", out)
	}
}

func TestParseDate(t *testing.T) {
	if parseDate("") != nil {
		t.Error("empty string must parse to nil")
	}
	if parseDate("garbage") != nil {
		t.Error("garbage must parse to nil")
	}

	d := parseDate("2025-07-15")
	if d == nil || !d.Equal(time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parseDate(2025-07-15) = %v", d)
	}

	d = parseDate("2025-07-15T10:30:00Z")
	if d == nil || d.Hour() != 10 {
		t.Errorf("RFC3339 input not handled: %v", d)
	}
}

func TestParsePeriod(t *testing.T) {
	start, end, err := parsePeriod("2025-07-01", "2025-07-31")
	if err != nil {
		t.Fatalf("parsePeriod: %v", err)
	}
	if !start.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	// Конец включает весь последний день
	if end.Day() != 31 || end.Hour() != 23 {
		t.Errorf("end = %v, want end of July 31", end)
	}

	if _, _, err := parsePeriod("", "2025-07-31"); err == nil {
		t.Error("missing start date must fail")
	}
}
