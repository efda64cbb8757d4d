package transcription

import (
	"context"
	"io"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job — состояние задачи у провайдера на момент опроса.
type Job struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Provider — трёхшаговый API провайдера: загрузка, создание задачи, опрос.
type Provider interface {
	Upload(ctx context.Context, r io.Reader, filename string) (uploadURL string, err error)
	CreateJob(ctx context.Context, uploadURL string) (jobID string, err error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// Transcriber — то, что нужно HTTP-слою.
type Transcriber interface {
	Transcribe(ctx context.Context, r io.Reader, filename string) (string, error)
}
