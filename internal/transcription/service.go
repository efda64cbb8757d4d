package transcription

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPollInterval  = 3 * time.Second
	DefaultMaxConcurrent = 10
)

type Config struct {
	PollInterval time.Duration
	// MaxPollAttempts == 0 — без ограничения по числу опросов.
	MaxPollAttempts int
	// PollTimeout == 0 — без общего дедлайна на опрос.
	PollTimeout   time.Duration
	MaxConcurrent int
}

// Service ведёт один файл через upload -> create job -> poll.
// Безопасен для конкурентного использования; общее состояние только gate.
type Service struct {
	provider Provider
	cfg      Config
	gate     *gate
	log      *zap.SugaredLogger

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

func NewService(provider Provider, cfg Config, metrics *Metrics, log *zap.SugaredLogger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxPollAttempts < 0 {
		cfg.MaxPollAttempts = 0
	}
	if cfg.PollTimeout < 0 {
		cfg.PollTimeout = 0
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Service{
		provider: provider,
		cfg:      cfg,
		gate:     newGate(cfg.MaxConcurrent, metrics),
		log:      log,
		wait:     sleepCtx,
		now:      time.Now,
	}
}

func (s *Service) Transcribe(ctx context.Context, r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", ErrMissingInput
	}

	start := s.now()
	text, polls, err := s.gate.do(ctx, func() (string, int, error) {
		return s.run(ctx, r, filename)
	})
	if err != nil {
		s.log.Warnw("transcription aborted", "file", filename, "stage", StageOf(err), "polls", polls, "error", err)
		return "", err
	}
	s.log.Infow("transcription completed", "file", filename, "polls", polls, "chars", len(text),
		"elapsed", s.now().Sub(start).Round(time.Millisecond))
	return text, nil
}

func (s *Service) run(ctx context.Context, r io.Reader, filename string) (string, int, error) {
	uploadURL, err := s.provider.Upload(ctx, r, filename)
	if err != nil {
		return "", 0, uploadError(err)
	}
	if uploadURL == "" {
		return "", 0, uploadError(ErrMissingField)
	}
	s.log.Debugw("asset uploaded", "file", filename, "upload_url", uploadURL)

	jobID, err := s.provider.CreateJob(ctx, uploadURL)
	if err != nil {
		return "", 0, jobCreationError(err)
	}
	if jobID == "" {
		return "", 0, jobCreationError(ErrMissingField)
	}
	s.log.Debugw("job created", "file", filename, "job_id", jobID)

	return s.poll(ctx, jobID)
}

func (s *Service) poll(ctx context.Context, jobID string) (string, int, error) {
	pollCtx := ctx
	if s.cfg.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, s.cfg.PollTimeout)
		defer cancel()
	}

	start := s.now()
	var last Status
	timeout := func(attempts int) error {
		return &PollTimeoutError{JobID: jobID, Attempts: attempts, Elapsed: s.now().Sub(start), LastStatus: last}
	}

	for attempt := 1; ; attempt++ {
		job, err := s.provider.GetJob(pollCtx, jobID)
		if err != nil {
			if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
				return "", attempt, timeout(attempt)
			}
			return "", attempt, pollError(err)
		}
		last = job.Status
		s.log.Debugw("job status", "job_id", jobID, "status", job.Status, "attempt", attempt)

		switch job.Status {
		case StatusCompleted:
			return job.Text, attempt, nil
		case StatusFailed:
			return "", attempt, &FailedError{JobID: jobID, Detail: job.Error}
		}

		if s.cfg.MaxPollAttempts > 0 && attempt >= s.cfg.MaxPollAttempts {
			return "", attempt, timeout(attempt)
		}

		if err := s.wait(pollCtx, s.cfg.PollInterval); err != nil {
			if ctx.Err() != nil {
				return "", attempt, pollError(ctx.Err())
			}
			return "", attempt, timeout(attempt)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var fe *FailedError
	var te *PollTimeoutError
	switch {
	case errors.As(err, &fe):
		return "failed"
	case errors.As(err, &te):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	switch StageOf(err) {
	case StageUpload:
		return "upload_error"
	case StageCreateJob:
		return "job_error"
	case StagePoll:
		return "poll_error"
	}
	return "error"
}
