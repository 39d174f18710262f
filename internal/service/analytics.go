package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
)

// Analytics вычисляет сводную финансовую статистику по журналу транзакций.
// Все операции чистые: читают журнал и сводят прочитанное в отчет,
// внутреннего состояния нет.
type Analytics struct {
	repo repository.Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewAnalytics(repo repository.Repository, log zerolog.Logger) *Analytics {
	return &Analytics{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// AggregateReport — отчет о прибылях и убытках за период
type AggregateReport struct {
	TotalIncome        decimal.Decimal            `json:"totalIncome"`
	TotalExpenses      decimal.Decimal            `json:"totalExpenses"`
	NetProfit          decimal.Decimal            `json:"netProfit"`
	IncomeByCategory   map[string]decimal.Decimal `json:"incomeByCategory"`
	ExpensesByCategory map[string]decimal.Decimal `json:"expensesByCategory"`
}

// CategoryBreakdown — детализация по одной категории
type CategoryBreakdown struct {
	Total        decimal.Decimal  `json:"total"`
	Transactions []BreakdownEntry `json:"transactions"`
}

type BreakdownEntry struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ForecastResult — линейный прогноз доходов на будущие месяцы
type ForecastResult struct {
	AverageMonthlyIncome decimal.Decimal `json:"averageMonthlyIncome"`
	ForecastedRevenue    []ForecastPoint `json:"forecastedRevenue"`
	Confidence           string          `json:"confidence"`
}

type ForecastPoint struct {
	Month     string          `json:"month"`
	Estimated decimal.Decimal `json:"estimated"`
}

// BreakEvenResult — итог анализа безубыточности за скользящее окно
type BreakEvenResult struct {
	AverageMonthlyIncome   decimal.Decimal `json:"averageMonthlyIncome"`
	AverageMonthlyExpenses decimal.Decimal `json:"averageMonthlyExpenses"`
	MonthlyNetProfit       decimal.Decimal `json:"monthlyNetProfit"`
	BreakEvenReached       bool            `json:"breakEvenReached"`
	Recommendation         string          `json:"recommendation"`
}

// BreakEvenOptions управляет спорным краевым случаем усреднения:
// учитывать ли месяцы без единой транзакции в знаменателе среднего.
// По умолчанию пустые месяцы исключаются (поведение GROUP BY по месяцам).
type BreakEvenOptions struct {
	IncludeEmptyMonths bool
}

// forecastWindowMonths — глубина истории доходов для прогноза
const forecastWindowMonths = 6

// GeneratePL строит отчет о прибылях и убытках за период.
// Выполняется одним чтением журнала, поэтому доходная и расходная части
// всегда считаются по одному и тому же снимку данных.
func (a *Analytics) GeneratePL(ctx context.Context, userID string, startDate, endDate time.Time) (*AggregateReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	transactions, err := a.repo.GetTransactions(ctx, userID, repository.TransactionFilter{
		StartDate: &startDate,
		EndDate:   &endDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for P&L: %w", err)
	}

	report := &AggregateReport{
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		NetProfit:          decimal.Zero,
		IncomeByCategory:   make(map[string]decimal.Decimal),
		ExpensesByCategory: make(map[string]decimal.Decimal),
	}

	for _, t := range transactions {
		if !model.ValidSubcategory(t.Category, t.Subcategory) {
			// Запись с подкатегорией вне закрытого набора не должна попадать
			// в отчет молча
			a.log.Warn().
				Str("transaction_id", t.ID).
				Str("category", string(t.Category)).
				Str("subcategory", t.Subcategory).
				Msg("транзакция с недопустимой подкатегорией учтена в отчете")
		}

		switch t.Category {
		case model.CategoryIncome:
			report.TotalIncome = report.TotalIncome.Add(t.Amount)
			report.IncomeByCategory[t.Subcategory] = report.IncomeByCategory[t.Subcategory].Add(t.Amount)
		case model.CategoryExpense:
			report.TotalExpenses = report.TotalExpenses.Add(t.Amount)
			report.ExpensesByCategory[t.Subcategory] = report.ExpensesByCategory[t.Subcategory].Add(t.Amount)
		}
	}

	report.NetProfit = report.TotalIncome.Sub(report.TotalExpenses)
	return report, nil
}

// GetCategoryBreakdown возвращает детализацию по категории с необязательным
// уточнением подкатегории. Транзакции отсортированы от новых к старым.
func (a *Analytics) GetCategoryBreakdown(ctx context.Context, userID string, category model.Category, subcategory string, startDate, endDate time.Time) (*CategoryBreakdown, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if !model.ValidCategory(category) {
		return nil, fmt.Errorf("%w: unknown category %q", model.ErrInvalidInput, category)
	}
	if subcategory != "" && !model.ValidSubcategory(category, subcategory) {
		return nil, fmt.Errorf("%w: subcategory %q is not allowed for category %q", model.ErrInvalidInput, subcategory, category)
	}

	transactions, err := a.repo.GetTransactions(ctx, userID, repository.TransactionFilter{
		Category:    category,
		Subcategory: subcategory,
		StartDate:   &startDate,
		EndDate:     &endDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get category breakdown: %w", err)
	}

	breakdown := &CategoryBreakdown{
		Total:        decimal.Zero,
		Transactions: make([]BreakdownEntry, 0, len(transactions)),
	}
	for _, t := range transactions {
		breakdown.Total = breakdown.Total.Add(t.Amount)
		breakdown.Transactions = append(breakdown.Transactions, BreakdownEntry{
			Date:        t.Date,
			Amount:      t.Amount,
			Description: t.Description,
		})
	}
	return breakdown, nil
}

// ForecastRevenue строит линейный прогноз доходов на months месяцев вперед
// по истории доходов за последние шесть месяцев. Тренд считается по двум
// крайним точкам — дешево и объяснимо, а не статистически строго.
func (a *Analytics) ForecastRevenue(ctx context.Context, userID string, months int) (*ForecastResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive, got %d", model.ErrInvalidInput, months)
	}

	now := a.now()
	windowStart := now.AddDate(0, -forecastWindowMonths, 0)

	transactions, err := a.repo.GetTransactions(ctx, userID, repository.TransactionFilter{
		Category:  model.CategoryIncome,
		StartDate: &windowStart,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get income history: %w", err)
	}

	monthlyTotals := groupByMonth(transactions)
	if len(monthlyTotals) == 0 {
		return &ForecastResult{
			AverageMonthlyIncome: decimal.Zero,
			ForecastedRevenue:    []ForecastPoint{},
			Confidence:           "low - insufficient data",
		}, nil
	}

	n := decimal.NewFromInt(int64(len(monthlyTotals)))
	sum := decimal.Zero
	for _, m := range monthlyTotals {
		sum = sum.Add(m.total)
	}
	average := sum.Div(n)

	// Тренд по крайним точкам: (последний месяц - самый старый) / число месяцев
	trend := decimal.Zero
	if len(monthlyTotals) > 1 {
		trend = monthlyTotals[0].total.Sub(monthlyTotals[len(monthlyTotals)-1].total).Div(n)
	}

	forecast := make([]ForecastPoint, 0, months)
	for i := 1; i <= months; i++ {
		estimated := average.Add(trend.Mul(decimal.NewFromInt(int64(i)))).Round(0)
		forecast = append(forecast, ForecastPoint{
			Month:     now.AddDate(0, i, 0).Format("2006-01"),
			Estimated: estimated,
		})
	}

	confidence := "low"
	if len(monthlyTotals) >= 3 {
		confidence = "medium"
	}

	return &ForecastResult{
		AverageMonthlyIncome: average.Round(0),
		ForecastedRevenue:    forecast,
		Confidence:           confidence,
	}, nil
}

// BreakEvenAnalysis сравнивает средние месячные доходы и расходы за
// скользящее окно в months месяцев и формирует рекомендацию.
func (a *Analytics) BreakEvenAnalysis(ctx context.Context, userID string, months int, opts BreakEvenOptions) (*BreakEvenResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive, got %d", model.ErrInvalidInput, months)
	}

	windowStart := a.now().AddDate(0, -months, 0)

	transactions, err := a.repo.GetTransactions(ctx, userID, repository.TransactionFilter{
		StartDate: &windowStart,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for break-even analysis: %w", err)
	}

	var income, expenses []model.Transaction
	for _, t := range transactions {
		switch t.Category {
		case model.CategoryIncome:
			income = append(income, t)
		case model.CategoryExpense:
			expenses = append(expenses, t)
		}
	}

	avgIncome := averageMonthlyTotal(groupByMonth(income), months, opts.IncludeEmptyMonths)
	avgExpense := averageMonthlyTotal(groupByMonth(expenses), months, opts.IncludeEmptyMonths)
	netProfit := avgIncome.Sub(avgExpense)
	reached := avgIncome.GreaterThanOrEqual(avgExpense)

	var recommendation string
	if reached {
		if avgIncome.IsZero() {
			// Оба средних нулевые: формально безубыточность, но считать маржу не из чего
			recommendation = "За выбранный период нет данных о доходах и расходах."
		} else {
			margin := netProfit.Div(avgIncome).Mul(decimal.NewFromInt(100)).Round(1)
			recommendation = fmt.Sprintf("Отлично! Вы достигли точки безубыточности с маржой %s%%. ", margin.StringFixed(1))
			if margin.LessThan(decimal.NewFromInt(20)) {
				recommendation += "Рекомендуется увеличить доходы или оптимизировать расходы для улучшения маржи."
			}
		}
	} else {
		deficit := avgExpense.Sub(avgIncome).Round(0)
		recommendation = fmt.Sprintf(
			"Внимание! Расходы превышают доходы на %s руб/мес. Необходимо либо увеличить доходы на %s, либо сократить расходы.",
			deficit, deficit,
		)
	}

	return &BreakEvenResult{
		AverageMonthlyIncome:   avgIncome.Round(0),
		AverageMonthlyExpenses: avgExpense.Round(0),
		MonthlyNetProfit:       netProfit.Round(0),
		BreakEvenReached:       reached,
		Recommendation:         recommendation,
	}, nil
}

type monthlyTotal struct {
	month time.Time
	total decimal.Decimal
}

// groupByMonth суммирует транзакции по календарным месяцам.
// Результат отсортирован от свежих месяцев к старым.
func groupByMonth(transactions []model.Transaction) []monthlyTotal {
	byMonth := make(map[time.Time]decimal.Decimal)
	for _, t := range transactions {
		month := time.Date(t.Date.Year(), t.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		byMonth[month] = byMonth[month].Add(t.Amount)
	}

	totals := make([]monthlyTotal, 0, len(byMonth))
	for month, total := range byMonth {
		totals = append(totals, monthlyTotal{month: month, total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].month.After(totals[j].month)
	})
	return totals
}

// averageMonthlyTotal усредняет месячные суммы. При includeEmpty знаменатель —
// длина окна в месяцах, иначе — только месяцы с активностью.
func averageMonthlyTotal(totals []monthlyTotal, windowMonths int, includeEmpty bool) decimal.Decimal {
	if len(totals) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, m := range totals {
		sum = sum.Add(m.total)
	}

	denominator := int64(len(totals))
	if includeEmpty {
		denominator = int64(windowMonths)
	}
	return sum.Div(decimal.NewFromInt(denominator))
}
