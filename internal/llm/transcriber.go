package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Transcriber переводит голосовые сообщения в текст через audio API
type Transcriber struct {
	client *openai.Client
}

func NewTranscriber(client *openai.Client) *Transcriber {
	return &Transcriber{client: client}
}

// Transcribe распознает аудиопоток. filename нужен API для определения
// формата контейнера (например voice.ogg).
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   audio,
		FilePath: filename,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}
