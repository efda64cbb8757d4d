package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderAssemblyAI = "assemblyai"
	ProviderWhisper    = "whisper"
)

type Config struct {
	Port string

	Provider        string
	AssemblyAPIKey  string
	AssemblyBaseURL string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	HTTPTimeout     time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int
	PollTimeout     time.Duration
	MaxConcurrent   int

	UploadDir          string
	UploadKeep         bool
	MaxUploadBytes     int64
	RateLimitPerMinute int

	S3       S3Config
	Telegram TelegramConfig

	LogLevel string
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

func (s S3Config) Enabled() bool { return s.Endpoint != "" }

type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
}

func (t TelegramConfig) Enabled() bool { return t.BotToken != "" }

// Load собирает конфиг из окружения. .env подгружается в main до вызова.
func Load() (*Config, error) {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	cfg := &Config{
		Port:            getenv("PORT", "3000"),
		Provider:        strings.ToLower(getenv("STT_PROVIDER", ProviderAssemblyAI)),
		AssemblyAPIKey:  os.Getenv("ASSEMBLY_API_KEY"),
		AssemblyBaseURL: getenv("ASSEMBLY_BASE_URL", "https://api.assemblyai.com/v2"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    os.Getenv("S3_REGION"),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
	}

	var err error
	cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", 60*time.Second)
	collect(err)
	cfg.PollInterval, err = durationEnv("POLL_INTERVAL", 3*time.Second)
	collect(err)
	cfg.PollTimeout, err = durationEnv("POLL_TIMEOUT", 20*time.Minute)
	collect(err)
	cfg.PollMaxAttempts, err = intEnv("POLL_MAX_ATTEMPTS", 400)
	collect(err)
	cfg.MaxConcurrent, err = intEnv("MAX_CONCURRENT_JOBS", 10)
	collect(err)
	cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", 30)
	collect(err)
	cfg.UploadKeep, err = boolEnv("UPLOAD_KEEP", true)
	collect(err)
	cfg.S3.Secure, err = boolEnv("S3_SECURE", true)
	collect(err)

	maxUpload, err := intEnv("MAX_UPLOAD_BYTES", 100<<20)
	collect(err)
	cfg.MaxUploadBytes = int64(maxUpload)

	if v := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); v != "" {
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			collect(fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID: %w", perr))
		}
		cfg.Telegram.AdminChatID = id
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %q", c.Port)
	}

	switch c.Provider {
	case ProviderAssemblyAI:
		if c.AssemblyAPIKey == "" {
			return fmt.Errorf("ASSEMBLY_API_KEY is not set")
		}
	case ProviderWhisper:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
	default:
		return fmt.Errorf("STT_PROVIDER must be %q or %q, got %q", ProviderAssemblyAI, ProviderWhisper, c.Provider)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("POLL_TIMEOUT cannot be negative, got %s", c.PollTimeout)
	}
	if c.PollMaxAttempts < 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS cannot be negative, got %d", c.PollMaxAttempts)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE cannot be negative, got %d", c.RateLimitPerMinute)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR cannot be empty")
	}

	if c.S3.Enabled() && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENDPOINT is set")
	}
	if c.Telegram.Enabled() && c.Telegram.AdminChatID == 0 {
		return fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of [debug, info, warn, error], got %q", c.LogLevel)
	}

	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
