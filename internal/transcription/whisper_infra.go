package transcription

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperTranscriber — синхронный Transcriber: один multipart-запрос, опрашивать нечего.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(apiKey, baseURL string) (*WhisperTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisper: api key is empty")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.Whisper1,
	}, nil
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", ErrMissingInput
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   r,
		FilePath: filepath.Base(filename),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", &FailedError{JobID: "whisper", Detail: err.Error()}
	}
	return resp.Text, nil
}
