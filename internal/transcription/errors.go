package transcription

import (
	"errors"
	"fmt"
	"time"
)

type Stage string

const (
	StageUpload    Stage = "upload"
	StageCreateJob Stage = "create job"
	StagePoll      Stage = "poll"
)

var (
	ErrMissingInput        = errors.New("no file uploaded")
	ErrMissingField        = errors.New("provider response is missing expected field")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrPollTimeout         = errors.New("transcription did not finish in time")
)

// StageError — ошибка удалённого вызова с указанием шага.
// UploadError, JobCreationError и PollError — это StageError с разным Stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func uploadError(err error) error      { return &StageError{Stage: StageUpload, Err: err} }
func jobCreationError(err error) error { return &StageError{Stage: StageCreateJob, Err: err} }
func pollError(err error) error        { return &StageError{Stage: StagePoll, Err: err} }

// FailedError — провайдер сам сообщил status=failed.
type FailedError struct {
	JobID  string
	Detail string
}

func (e *FailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("transcription failed (job %s)", e.JobID)
	}
	return fmt.Sprintf("transcription failed (job %s): %s", e.JobID, e.Detail)
}

func (e *FailedError) Is(target error) bool { return target == ErrTranscriptionFailed }

// PollTimeoutError — задача так и не дошла до completed/failed за отведённые
// попытки или время.
type PollTimeoutError struct {
	JobID      string
	Attempts   int
	Elapsed    time.Duration
	LastStatus Status
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("poll timeout: job %s still %q after %d attempts (%s)",
		e.JobID, e.LastStatus, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

func (e *PollTimeoutError) Is(target error) bool { return target == ErrPollTimeout }

// StageOf — шаг, на котором упал Transcribe, или "" если неизвестно.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	var fe *FailedError
	var te *PollTimeoutError
	if errors.As(err, &fe) || errors.As(err, &te) {
		return StagePoll
	}
	return ""
}
