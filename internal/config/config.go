package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Бэкенды хранилища журнала
const (
	StoragePostgres = "postgres"
	StorageSupabase = "supabase"
)

type Config struct {
	TelegramToken string

	// Хранилище: собственный Postgres или Supabase
	StorageBackend string
	DatabaseURL    string
	SupabaseURL    string
	SupabaseKey    string

	// OpenAI-совместимый LLM-сервис
	OpenAIBaseURL string
	OpenAIKey     string
	OpenAIModel   string

	Port string
}

func LoadConfig() (*Config, error) {
	// .env необязателен: в облаке переменные приходят из окружения
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		StorageBackend: getEnv("STORAGE_BACKEND", StoragePostgres),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Port:           getEnv("PORT", "3000"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	switch cfg.StorageBackend {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	case StorageSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for supabase storage")
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
