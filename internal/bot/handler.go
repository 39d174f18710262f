package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Eikhinson/telegram-finance-bot/internal/llm"
	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

func (b *Bot) handleStart(message *tgbotapi.Message) {
	b.replyHTML(message.Chat.ID,
		"👋 Добро пожаловать в AI-систему финансового учёта!\n\n"+
			"Я понимаю команды на естественном языке. Просто напишите мне, что нужно сделать.\n\n"+
			"<b>📝 Добавление транзакций:</b>\n"+
			"• \"Получил 50000 от клиента, заплатил аренду 30к\"\n"+
			"• Можно писать несколько сразу или диктовать голосом.\n\n"+
			"<b>📊 Отчёты и аналитика (просто попросите):</b>\n"+
			"• \"Пришли отчет\" или \"Покажи P&L\"\n"+
			"• \"Сделай прогноз доходов\"\n"+
			"• \"Посчитай безубыточность\"\n"+
			"• \"Экспорт в CSV\"\n\n"+
			"<b>❓ Вопросы:</b>\n"+
			"• \"Куда ушли деньги в этом месяце?\"\n"+
			"• \"Сколько я потратил на маркетинг?\"")
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	b.replyHTML(message.Chat.ID,
		"📖 <b>СПРАВКА</b>\n\n"+
			"Я работаю полностью на естественном языке. Вам не нужно запоминать команды.\n\n"+
			"<b>Как добавить доход/расход:</b>\n"+
			"Просто напишите: \"Купил ноутбук за 80000\" или \"Пришла оплата 15000 за сайт\".\n"+
			"Можно указать несколько операций сразу: \"Такси 500, обед 1000, кофе 300\".\n\n"+
			"<b>Как получить отчёт:</b>\n"+
			"Напишите: \"отчет\", \"report\", \"итоги месяца\", \"P&L\" — или команда /report.\n\n"+
			"<b>Как скачать данные:</b>\n"+
			"Напишите: \"экспорт\", \"csv\", \"скачать базу\" — или команда /export.\n\n"+
			"<b>Аналитика:</b>\n"+
			"/forecast — прогноз доходов, /breakeven — анализ безубыточности.\n\n"+
			"<b>Вопросы:</b>\n"+
			"В любой момент спросите: \"Сколько денег осталось?\", \"Где самые большие расходы?\".")
}

func (b *Bot) handleReport(message *tgbotapi.Message) {
	b.reply(message.Chat.ID, "📊 Генерирую отчёт...")

	userID := strconv.FormatInt(message.From.ID, 10)
	now := time.Now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	endDate := startDate.AddDate(0, 1, 0).Add(-time.Nanosecond)

	report, err := b.analytics.GeneratePL(context.Background(), userID, startDate, endDate)
	if err != nil {
		b.log.Error().Err(err).Str("user_id", userID).Msg("ошибка генерации отчета")
		b.reply(message.Chat.ID, "❌ Ошибка при генерации отчёта.")
		return
	}

	b.replyHTML(message.Chat.ID, formatPLReport(report))

	// Диаграммы отправляем только когда есть что рисовать
	if pie, err := b.charts.GenerateCategoryPieChart(report.ExpensesByCategory, "Структура расходов"); err == nil {
		b.replyPhoto(message.Chat.ID, pie, "expenses.png")
	} else {
		b.log.Warn().Err(err).Msg("не удалось построить диаграмму расходов")
	}
	if pie, err := b.charts.GenerateCategoryPieChart(report.IncomeByCategory, "Структура доходов"); err == nil {
		b.replyPhoto(message.Chat.ID, pie, "income.png")
	} else {
		b.log.Warn().Err(err).Msg("не удалось построить диаграмму доходов")
	}
}

func (b *Bot) handleExport(message *tgbotapi.Message) {
	b.reply(message.Chat.ID, "📁 Экспортирую данные...")

	userID := strconv.FormatInt(message.From.ID, 10)
	data, count, err := b.tracker.ExportCSV(context.Background(), userID, repository.TransactionFilter{})
	if err != nil {
		b.log.Error().Err(err).Str("user_id", userID).Msg("ошибка экспорта")
		b.reply(message.Chat.ID, "❌ Ошибка при экспорте данных.")
		return
	}
	if count == 0 {
		b.reply(message.Chat.ID, "❌ Нет данных для экспорта")
		return
	}

	document := tgbotapi.NewDocument(message.Chat.ID, tgbotapi.FileBytes{
		Name:  "transactions.csv",
		Bytes: data,
	})
	if _, err := b.api.Send(document); err != nil {
		b.log.Error().Err(err).Msg("не удалось отправить файл")
		return
	}
	b.reply(message.Chat.ID, fmt.Sprintf("✅ Экспортировано %d транзакций", count))
}

func (b *Bot) handleForecast(message *tgbotapi.Message) {
	b.reply(message.Chat.ID, "📈 Строю прогноз...")

	userID := strconv.FormatInt(message.From.ID, 10)
	result, err := b.analytics.ForecastRevenue(context.Background(), userID, 3)
	if err != nil {
		b.log.Error().Err(err).Str("user_id", userID).Msg("ошибка прогноза")
		b.reply(message.Chat.ID, "❌ Ошибка при построении прогноза.")
		return
	}

	b.replyHTML(message.Chat.ID, formatForecast(result))

	if chart, err := b.charts.GenerateForecastChart(result); err == nil {
		b.replyPhoto(message.Chat.ID, chart, "forecast.png")
	} else {
		b.log.Warn().Err(err).Msg("не удалось построить график прогноза")
	}
}

func (b *Bot) handleBreakeven(message *tgbotapi.Message) {
	b.reply(message.Chat.ID, "⚖️ Анализирую безубыточность...")

	userID := strconv.FormatInt(message.From.ID, 10)
	result, err := b.analytics.BreakEvenAnalysis(context.Background(), userID, 3, service.BreakEvenOptions{})
	if err != nil {
		b.log.Error().Err(err).Str("user_id", userID).Msg("ошибка анализа безубыточности")
		b.reply(message.Chat.ID, "❌ Ошибка при анализе.")
		return
	}

	b.replyHTML(message.Chat.ID, formatBreakEven(result))
}

// saveParsed сохраняет извлеченные операции по одной: ошибка валидации
// одной операции не мешает сохранить остальные
func (b *Bot) saveParsed(ctx context.Context, chatID int64, userID string, parsed []llm.ParsedTransaction) []*model.Transaction {
	saved := make([]*model.Transaction, 0, len(parsed))
	for _, p := range parsed {
		transaction, err := b.tracker.AddTransaction(ctx, userID, p.Category, p.Subcategory, p.Amount, p.Description, p.Date)
		if err != nil {
			if errors.Is(err, model.ErrInvalidInput) {
				b.log.Warn().Err(err).Str("user_id", userID).Msg("модель вернула некорректную операцию")
				b.reply(chatID, fmt.Sprintf("⚠️ Операция «%s» не сохранена: некорректные данные.", p.Description))
				continue
			}
			b.log.Error().Err(err).Str("user_id", userID).Msg("ошибка сохранения транзакции")
			b.reply(chatID, "❌ Не удалось сохранить транзакцию. Попробуйте ещё раз.")
			continue
		}
		saved = append(saved, transaction)
	}
	return saved
}
