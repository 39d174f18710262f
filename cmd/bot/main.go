package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eikhinson/telegram-finance-bot/internal/bot"
	"github.com/Eikhinson/telegram-finance-bot/internal/config"
	"github.com/Eikhinson/telegram-finance-bot/internal/llm"
	"github.com/Eikhinson/telegram-finance-bot/internal/logger"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
	"github.com/Eikhinson/telegram-finance-bot/internal/service"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("ошибка загрузки конфигурации")
	}

	ctx := context.Background()

	var repo repository.Repository
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		pg, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("ошибка подключения к базе данных")
		}
		defer pg.Close()
		if err := pg.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("ошибка инициализации схемы")
		}
		repo = pg
	case config.StorageSupabase:
		sb, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			log.Fatal().Err(err).Msg("ошибка подключения к Supabase")
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
		log.Fatal().Err(err).Msg("ошибка инициализации бота")
	}

	// Health-check для облачных платформ
	go func() {
		r := chi.NewRouter()
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
		log.Info().Str("port", cfg.Port).Msg("health-check сервер запущен")
		if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
			log.Error().Err(err).Msg("health-check сервер остановлен")
		}
	}()

	log.Info().Msg("бот запущен")
	if err := b.Start(); err != nil {
		log.Fatal().Err(err).Msg("бот остановлен с ошибкой")
	}
}
