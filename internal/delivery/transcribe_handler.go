package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/Vovarama1992/transcript_backend/internal/error_notificator"
	"github.com/Vovarama1992/transcript_backend/internal/storage"
	"github.com/Vovarama1992/transcript_backend/internal/transcription"
)

const (
	serviceName     = "transcript_backend"
	audioFormField  = "audio"
	multipartMemory = 32 << 20
	finishTimeout   = 2 * time.Minute
)

type TranscribeHandler struct {
	transcriber transcription.Transcriber
	storage     *storage.Service
	notifier    error_notificator.Notificator
	log         *logger.ZapLogger
	maxUpload   int64

	// фоновые архивации, ждём их при остановке
	bg sync.WaitGroup
}

func NewTranscribeHandler(
	transcriber transcription.Transcriber,
	storageService *storage.Service,
	notifier error_notificator.Notificator,
	log *logger.ZapLogger,
	maxUpload int64,
) *TranscribeHandler {
	return &TranscribeHandler{
		transcriber: transcriber,
		storage:     storageService,
		notifier:    notifier,
		log:         log,
		maxUpload:   maxUpload,
	}
}

// UploadAudio — POST /upload-audio, multipart с полем "audio".
func (h *TranscribeHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-ID", reqID)

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "No file uploaded"})
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "invalid multipart",
				"error":   fmt.Sprintf("file is larger than %s", humanize.IBytes(uint64(tooLarge.Limit))),
			})
		default:
			h.log.Log(logger.LogEntry{Level: "warn", Message: "invalid multipart", Service: serviceName, Error: err})
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid multipart", "error": err.Error()})
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(audioFormField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "No file uploaded"})
		return
	}
	defer file.Close()

	ctx := r.Context()

	asset, err := h.storage.Save(ctx, file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.fail(ctx, w, reqID, header.Filename, err)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("[upload] req=%s file=%q saved to %s (%s)", reqID, asset.OriginalName, asset.Path, humanize.Bytes(uint64(asset.Size))),
		Service: serviceName,
	})

	text, err := h.transcribe(ctx, asset)
	if err != nil {
		h.fail(ctx, w, reqID, asset.OriginalName, err)
		h.finishAsync(reqID, asset)
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("[upload] req=%s transcribed %q: %d chars", reqID, asset.OriginalName, len(text)),
		Service: serviceName,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "success",
		"transcription": text,
	})
	h.finishAsync(reqID, asset)
}

func (h *TranscribeHandler) transcribe(ctx context.Context, asset *storage.Asset) (string, error) {
	rc, err := h.storage.Open(asset)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return h.transcriber.Transcribe(ctx, rc, asset.OriginalName)
}

func (h *TranscribeHandler) fail(ctx context.Context, w http.ResponseWriter, reqID, filename string, err error) {
	h.log.Log(logger.LogEntry{
		Level:   "error",
		Message: fmt.Sprintf("[upload] req=%s file=%q stage=%q failed", reqID, filename, transcription.StageOf(err)),
		Service: serviceName,
		Error:   err,
	})
	_ = h.notifier.Notify(context.WithoutCancel(ctx), err, fmt.Sprintf("req=%s file=%s", reqID, filename))

	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"message": "Transcription failed",
		"error":   err.Error(),
	})
}

// finishAsync архивирует/удаляет файл после ответа клиенту.
func (h *TranscribeHandler) finishAsync(reqID string, asset *storage.Asset) {
	h.bg.Add(1)
	go func() {
		defer h.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
		defer cancel()

		url, err := h.storage.Finish(ctx, asset)
		if err != nil {
			_ = h.notifier.Notify(ctx, err, fmt.Sprintf("req=%s archive/cleanup", reqID))
			return
		}
		if url != "" {
			h.log.Log(logger.LogEntry{
				Level:   "info",
				Message: fmt.Sprintf("[upload] req=%s archived to %s", reqID, url),
				Service: serviceName,
			})
		}
	}()
}

// Wait — ждёт завершения фоновых архиваций.
func (h *TranscribeHandler) Wait() {
	h.bg.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
