package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

// formatAmount форматирует сумму в русской записи: разряды через пробел,
// дробная часть только если она есть
func formatAmount(d decimal.Decimal) string {
	s := d.Round(2).String()

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	negative := strings.HasPrefix(intPart, "-")
	digits := strings.TrimPrefix(intPart, "-")

	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	if fracPart != "" {
		sb.WriteByte(',')
		sb.WriteString(fracPart)
	}
	return sb.String()
}

// sortedKeys возвращает ключи карты сумм по убыванию значения
func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !m[keys[i]].Equal(m[keys[j]]) {
			return m[keys[i]].GreaterThan(m[keys[j]])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// formatPLReport строит HTML-сообщение отчета о прибылях и убытках
func formatPLReport(report *service.AggregateReport) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>ОТЧЁТ О ПРИБЫЛЯХ И УБЫТКАХ</b>\n\n")

	sb.WriteString(fmt.Sprintf("💰 <b>ДОХОДЫ</b>: %s руб.\n", formatAmount(report.TotalIncome)))
	if len(report.IncomeByCategory) > 0 {
		sb.WriteString("Детализация:\n")
		for _, sub := range sortedKeys(report.IncomeByCategory) {
			sb.WriteString(fmt.Sprintf("  • %s: %s руб.\n", model.SubcategoryLabel(sub), formatAmount(report.IncomeByCategory[sub])))
		}
	}

	sb.WriteString(fmt.Sprintf("\n💸 <b>РАСХОДЫ</b>: %s руб.\n", formatAmount(report.TotalExpenses)))
	if len(report.ExpensesByCategory) > 0 {
		sb.WriteString("Детализация:\n")
		for _, sub := range sortedKeys(report.ExpensesByCategory) {
			sb.WriteString(fmt.Sprintf("  • %s: %s руб.\n", model.SubcategoryLabel(sub), formatAmount(report.ExpensesByCategory[sub])))
		}
	}

	profitEmoji := "✅"
	if report.NetProfit.IsNegative() {
		profitEmoji = "❌"
	}
	sb.WriteString(fmt.Sprintf("\n%s <b>ЧИСТАЯ ПРИБЫЛЬ</b>: %s руб.", profitEmoji, formatAmount(report.NetProfit)))

	if report.NetProfit.IsNegative() {
		sb.WriteString("\n\n⚠️ Внимание: расходы превышают доходы!")
	}
	return sb.String()
}

// formatForecast строит HTML-сообщение прогноза доходов
func formatForecast(result *service.ForecastResult) string {
	var sb strings.Builder
	sb.WriteString("📈 <b>ПРОГНОЗ ДОХОДОВ</b>\n\n")
	sb.WriteString(fmt.Sprintf("Средний месячный доход: %s руб.\n\n", formatAmount(result.AverageMonthlyIncome)))

	if len(result.ForecastedRevenue) > 0 {
		sb.WriteString("<b>Прогноз:</b>\n")
		for _, f := range result.ForecastedRevenue {
			sb.WriteString(fmt.Sprintf("• %s: ~%s руб.\n", f.Month, formatAmount(f.Estimated)))
		}
	}

	sb.WriteString(fmt.Sprintf("\nУверенность: %s", result.Confidence))
	return sb.String()
}

// formatBreakEven строит HTML-сообщение анализа безубыточности
func formatBreakEven(result *service.BreakEvenResult) string {
	icon := "⚠️"
	status := "Безубыточность НЕ достигнута"
	if result.BreakEvenReached {
		icon = "✅"
		status = "Безубыточность достигнута!"
	}

	var sb strings.Builder
	sb.WriteString("⚖️ <b>АНАЛИЗ БЕЗУБЫТОЧНОСТИ</b>\n\n")
	sb.WriteString(fmt.Sprintf("Средний доход/мес: %s руб.\n", formatAmount(result.AverageMonthlyIncome)))
	sb.WriteString(fmt.Sprintf("Средний расход/мес: %s руб.\n", formatAmount(result.AverageMonthlyExpenses)))
	sb.WriteString(fmt.Sprintf("Чистая прибыль/мес: %s руб.\n\n", formatAmount(result.MonthlyNetProfit)))
	sb.WriteString(fmt.Sprintf("%s %s\n\n", icon, status))
	sb.WriteString(fmt.Sprintf("💡 %s", result.Recommendation))
	return sb.String()
}

// formatSavedTransactions строит подтверждение сохраненных операций
func formatSavedTransactions(saved []*model.Transaction) string {
	if len(saved) == 1 {
		t := saved[0]
		icon := "💸"
		kind := "Расход"
		if t.Category == model.CategoryIncome {
			icon = "💰"
			kind = "Доход"
		}
		return fmt.Sprintf(
			"✅ Транзакция сохранена!\n\n%s %s — %s\n💵 Сумма: %s руб.\n📝 %s",
			icon, kind, model.SubcategoryLabel(t.Subcategory), formatAmount(t.Amount), t.Description,
		)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ Сохранено транзакций: %d\n", len(saved)))
	for _, t := range saved {
		icon := "💸"
		if t.Category == model.CategoryIncome {
			icon = "💰"
		}
		sb.WriteString(fmt.Sprintf("%s %s: %s руб. — %s\n", icon, model.SubcategoryLabel(t.Subcategory), formatAmount(t.Amount), t.Description))
	}
	return sb.String()
}
