package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Vovarama1992/transcript_backend/internal/config"
	"github.com/Vovarama1992/transcript_backend/internal/delivery"
	"github.com/Vovarama1992/transcript_backend/internal/error_notificator"
	"github.com/Vovarama1992/transcript_backend/internal/storage"
	"github.com/Vovarama1992/transcript_backend/internal/transcription"
)

const serviceName = "transcript_backend"

func main() {

	// =========================================================================
	// ENV / CONFIG
	// =========================================================================

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapCfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	baseLogger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer baseLogger.Sync()
	sugar := baseLogger.Sugar()
	zl := logger.NewZapLogger(sugar)

	// =========================================================================
	// ERROR NOTIFICATION
	// =========================================================================

	var notifyInfra error_notificator.Notificator
	if cfg.Telegram.Enabled() {
		tg, err := error_notificator.NewTelegramInfra(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, serviceName)
		if err != nil {
			log.Fatalf("failed to init telegram notificator: %v", err)
		}
		notifyInfra = tg
	}
	errService := error_notificator.NewService(notifyInfra, sugar.Named("notificator"))

	// =========================================================================
	// STORAGE
	// =========================================================================

	disk, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to init upload dir: %v", err)
	}

	var archiver storage.Archiver
	if cfg.S3.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archiver, err = storage.NewS3Archive(ctx, storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Secure:    cfg.S3.Secure,
		})
		cancel()
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
	}
	storageService := storage.NewService(disk, archiver, cfg.UploadKeep, sugar.Named("storage"))

	// =========================================================================
	// TRANSCRIPTION
	// =========================================================================

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := transcription.NewMetrics(registry)

	var transcriber transcription.Transcriber
	switch cfg.Provider {
	case config.ProviderWhisper:
		var whisper *transcription.WhisperTranscriber
		whisper, err = transcription.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err == nil {
			// тот же лимит и метрики, что и у AssemblyAI
			transcriber = transcription.NewLimited(whisper, cfg.MaxConcurrent, metrics)
		}
	default:
		var assembly *transcription.AssemblyAIClient
		assembly, err = transcription.NewAssemblyAIClient(cfg.AssemblyAPIKey, cfg.AssemblyBaseURL, cfg.HTTPTimeout)
		if err == nil {
			transcriber = transcription.NewService(assembly, transcription.Config{
				PollInterval:    cfg.PollInterval,
				MaxPollAttempts: cfg.PollMaxAttempts,
				PollTimeout:     cfg.PollTimeout,
				MaxConcurrent:   cfg.MaxConcurrent,
			}, metrics, sugar.Named("transcription"))
		}
	}
	if err != nil {
		log.Fatalf("failed to init %s transcriber: %v", cfg.Provider, err)
	}

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	transcribeHandler := delivery.NewTranscribeHandler(transcriber, storageService, errService, zl, cfg.MaxUploadBytes)

	r := delivery.NewRouter(transcribeHandler, delivery.RouterOptions{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Metrics:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "listening at http://" + addr + " (provider " + cfg.Provider + ")",
			Service: serviceName,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	zl.Log(logger.LogEntry{Level: "info", Message: "shutting down on " + sig.String(), Service: serviceName})

	// опрос у провайдера может идти минутами, ждём столько же, сколько в конфиге
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.PollTimeout+30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "shutdown", Service: serviceName, Error: err})
	}
	transcribeHandler.Wait()

	zl.Log(logger.LogEntry{Level: "info", Message: "stopped", Service: serviceName})
}
