package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New создает структурированный логгер с выводом в консоль
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewWithWriter создает логгер с произвольным писателем (для тестов)
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
