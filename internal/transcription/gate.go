package transcription

import (
	"context"
	"io"
	"time"
)

// gate — общий лимит одновременных задач и метрики для любого Transcriber.
type gate struct {
	sem     chan struct{}
	metrics *Metrics
	now     func() time.Time
}

func newGate(maxConcurrent int, metrics *Metrics) *gate {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &gate{
		sem:     make(chan struct{}, maxConcurrent),
		metrics: metrics,
		now:     time.Now,
	}
}

// do ждёт свободный слот (или отмену ctx), выполняет fn и пишет исход в метрики.
// fn возвращает текст, число опросов и ошибку.
func (g *gate) do(ctx context.Context, fn func() (string, int, error)) (string, int, error) {
	select {
	case g.sem <- struct{}{}:
		defer func() { <-g.sem }()
	case <-ctx.Done():
		return "", 0, ctx.Err()
	}
	g.metrics.acquired()
	defer g.metrics.released()

	start := g.now()
	text, polls, err := fn()
	g.metrics.observe(outcomeOf(err), polls, g.now().Sub(start).Seconds())
	return text, polls, err
}

// Limited оборачивает синхронный Transcriber (например, Whisper) тем же
// лимитом и метриками, что и Service.
type Limited struct {
	next Transcriber
	gate *gate
}

func NewLimited(next Transcriber, maxConcurrent int, metrics *Metrics) *Limited {
	return &Limited{next: next, gate: newGate(maxConcurrent, metrics)}
}

func (l *Limited) Transcribe(ctx context.Context, r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", ErrMissingInput
	}
	text, _, err := l.gate.do(ctx, func() (string, int, error) {
		text, err := l.next.Transcribe(ctx, r, filename)
		return text, 0, err
	})
	return text, err
}
