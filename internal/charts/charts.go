package charts

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

// ChartGenerator генерирует изображения для отчетов
type ChartGenerator struct{}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// GenerateCategoryPieChart создает круговую диаграмму распределения сумм
// по подкатегориям. Возвращает nil, если рисовать нечего.
func (g *ChartGenerator) GenerateCategoryPieChart(byCategory map[string]decimal.Decimal, title string) ([]byte, error) {
	if len(byCategory) == 0 {
		return nil, nil
	}

	total := decimal.Zero
	for _, amount := range byCategory {
		total = total.Add(amount)
	}
	if !total.IsPositive() {
		return nil, nil
	}

	subcategories := make([]string, 0, len(byCategory))
	for sub := range byCategory {
		subcategories = append(subcategories, sub)
	}
	sort.Slice(subcategories, func(i, j int) bool {
		return byCategory[subcategories[i]].GreaterThan(byCategory[subcategories[j]])
	})

	values := make([]chart.Value, 0, len(subcategories))
	for _, sub := range subcategories {
		amount := byCategory[sub]
		share, _ := amount.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		// Доли меньше процента только загромождают диаграмму
		if share <= 1.0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %s₽ (%.1f%%)", model.SubcategoryLabel(sub), amount.Round(0), share),
			Value: amount.InexactFloat64(),
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}
	if len(values) == 0 {
		return nil, nil
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render category pie chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// GenerateForecastChart создает столбчатую диаграмму прогноза доходов:
// средний исторический доход и оценки будущих месяцев.
func (g *ChartGenerator) GenerateForecastChart(result *service.ForecastResult) ([]byte, error) {
	if result == nil || len(result.ForecastedRevenue) == 0 {
		return nil, nil
	}

	bars := make([]chart.Value, 0, len(result.ForecastedRevenue)+1)
	bars = append(bars, chart.Value{
		Label: fmt.Sprintf("Среднее: %s₽", result.AverageMonthlyIncome.Round(0)),
		Value: result.AverageMonthlyIncome.InexactFloat64(),
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
			FillColor:   chart.ColorBlue.WithAlpha(100),
			FontSize:    12,
			FontColor:   chart.ColorBlack,
		},
	})
	for _, point := range result.ForecastedRevenue {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s: %s₽", point.Month, point.Estimated.Round(0)),
			Value: point.Estimated.InexactFloat64(),
			Style: chart.Style{
				StrokeColor: chart.ColorGreen,
				FillColor:   chart.ColorGreen.WithAlpha(100),
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		})
	}

	graph := chart.BarChart{
		Title: "Прогноз доходов",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1200,
		Height:   600,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f₽", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render forecast chart: %w", err)
	}
	return buffer.Bytes(), nil
}
