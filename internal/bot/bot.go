package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Eikhinson/telegram-finance-bot/internal/charts"
	"github.com/Eikhinson/telegram-finance-bot/internal/llm"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

// Bot связывает Telegram-транспорт, LLM-коллабораторов и финансовый сервис.
// Интерфейс полностью на естественном языке: команды оставлены только
// как быстрые ярлыки для отчетов.
type Bot struct {
	api         *tgbotapi.BotAPI
	tracker     *service.FinanceTracker
	analytics   *service.Analytics
	categorizer *llm.Categorizer
	assistant   *llm.Assistant
	transcriber *llm.Transcriber
	charts      *charts.ChartGenerator
	log         zerolog.Logger
}

func NewBot(token string, tracker *service.FinanceTracker, analytics *service.Analytics, categorizer *llm.Categorizer, assistant *llm.Assistant, transcriber *llm.Transcriber, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:         api,
		tracker:     tracker,
		analytics:   analytics,
		categorizer: categorizer,
		assistant:   assistant,
		transcriber: transcriber,
		charts:      charts.NewChartGenerator(),
		log:         log,
	}, nil
}

// Start запускает бота в режиме long polling
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if err := b.handleUpdate(update); err != nil {
			// Логируем ошибку, но продолжаем обрабатывать обновления
			b.log.Error().Err(err).Msg("ошибка обработки обновления")
		}
	}

	return nil
}

// HandleWebhook — точка входа для обработки входящих webhook-обновлений
func (b *Bot) HandleWebhook(body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return err
	}

	return b.handleUpdate(update)
}

func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}

	message := update.Message
	switch {
	case message.IsCommand():
		return b.handleCommand(message)
	case message.Voice != nil:
		return b.handleVoice(message)
	case message.Text != "":
		return b.handleText(message)
	}
	return nil
}

func (b *Bot) handleCommand(message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "report":
		b.handleReport(message)
	case "export":
		b.handleExport(message)
	case "forecast":
		b.handleForecast(message)
	case "breakeven":
		b.handleBreakeven(message)
	}
	return nil
}

// Признаки того, что сообщение описывает транзакцию, а не вопрос
var transactionKeywords = []string{
	"получил", "получила", "заработал", "продал", "выручка",
	"оплатил", "оплатила", "потратил", "купил", "заплатил",
	"аренда", "зарплата", "расход", "доход", "руб", "рублей", "₽",
}

var thousandsSuffix = regexp.MustCompile(`\d+\s*(к|тыс)`)

// isTransactionMessage — дешевая эвристика: сумма плюс «транзакционное» слово.
// Всё остальное уходит ассистенту как вопрос.
func isTransactionMessage(text string) bool {
	hasAmount := strings.IndexFunc(text, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
	if !hasAmount {
		return false
	}

	lower := strings.ToLower(text)
	for _, keyword := range transactionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return thousandsSuffix.MatchString(lower)
}

func (b *Bot) handleText(message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.From.ID, 10)

	if isTransactionMessage(message.Text) {
		b.reply(message.Chat.ID, "💭 Обрабатываю транзакции...")
		return b.processTransactionText(message.Chat.ID, userID, message.Text)
	}

	b.reply(message.Chat.ID, "💭 Думаю над вопросом...")
	answer, err := b.assistant.Answer(context.Background(), userID, message.Text)
	if err != nil {
		b.log.Error().Err(err).Str("user_id", userID).Msg("ошибка ассистента")
		b.reply(message.Chat.ID, "❌ Не удалось обработать вопрос. Попробуйте ещё раз.")
		return nil
	}
	b.replyHTML(message.Chat.ID, answer)
	return nil
}

// processTransactionText извлекает операции из текста и сохраняет их
func (b *Bot) processTransactionText(chatID int64, userID, text string) error {
	ctx := context.Background()

	parsed, err := b.categorizer.ExtractTransactions(ctx, text)
	if err != nil {
		b.log.Error().Err(err).Str("user_id", userID).Msg("ошибка категоризации")
		b.reply(chatID, "❌ Не удалось распознать транзакции. Проверьте формат.")
		return nil
	}
	if len(parsed) == 0 {
		b.reply(chatID, "❌ Не удалось распознать транзакции. Проверьте формат.")
		return nil
	}

	saved := b.saveParsed(ctx, chatID, userID, parsed)
	if len(saved) > 0 {
		b.reply(chatID, formatSavedTransactions(saved))
	}
	return nil
}

func (b *Bot) handleVoice(message *tgbotapi.Message) error {
	userID := strconv.FormatInt(message.From.ID, 10)
	b.reply(message.Chat.ID, "🎤 Обрабатываю голосовое сообщение...")

	fileURL, err := b.api.GetFileDirectURL(message.Voice.FileID)
	if err != nil {
		b.log.Error().Err(err).Msg("не удалось получить ссылку на голосовой файл")
		b.reply(message.Chat.ID, "❌ Ошибка при обработке голосового сообщения.")
		return nil
	}

	resp, err := http.Get(fileURL)
	if err != nil {
		b.log.Error().Err(err).Msg("не удалось скачать голосовой файл")
		b.reply(message.Chat.ID, "❌ Ошибка при обработке голосового сообщения.")
		return nil
	}
	defer resp.Body.Close()

	text, err := b.transcriber.Transcribe(context.Background(), resp.Body, "voice.ogg")
	if err != nil {
		b.log.Error().Err(err).Msg("ошибка распознавания речи")
		b.reply(message.Chat.ID, "❌ Не удалось распознать речь. Попробуйте ещё раз.")
		return nil
	}

	b.reply(message.Chat.ID, fmt.Sprintf("🗣 Распознано: «%s»", text))
	return b.processTransactionText(message.Chat.ID, userID, text)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Msg("не удалось отправить сообщение")
	}
}

func (b *Bot) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error().Err(err).Msg("не удалось отправить сообщение")
	}
}

func (b *Bot) replyPhoto(chatID int64, image []byte, name string) {
	if len(image) == 0 {
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: image})
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error().Err(err).Msg("не удалось отправить изображение")
	}
}
