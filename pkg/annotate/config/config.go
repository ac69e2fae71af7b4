// Package config loads and validates process configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config enumerates every recognized option. All values are externally
// supplied; nothing here is hardcoded at call sites.
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	// Record store. Empty means the in-memory store (development only).
	DatabaseURL string `env:"DATABASE_URL"`

	// Blob storage. Empty bucket means the in-memory backend.
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	PresignDuration   int    `env:"PRESIGN_DURATION" env-default:"3600"`

	// Event transport. Empty brokers means in-process dispatch (development
	// only).
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" env-default:"image-events"`
	KafkaDLQ     string `env:"KAFKA_DLQ_TOPIC" env-default:"image-events-dlq"`

	// Captioning model.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL_NAME" env-default:"gemini-1.5-flash-latest"`
	GeminiPrompt string `env:"GEMINI_PROMPT" env-default:"Describe this image in detail."`

	// Thumbnailing.
	ThumbnailWidth  int `env:"THUMBNAIL_WIDTH" env-default:"128"`
	ThumbnailHeight int `env:"THUMBNAIL_HEIGHT" env-default:"128"`

	// Upload limits.
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" env-default:"16777216"`
}

// Load reads configuration from the environment and validates the parts
// every process needs. Per-process requirements are validated separately so
// a binary fails fast on the options it actually uses.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.PresignDuration <= 0 {
		return errors.New("PRESIGN_DURATION must be positive")
	}
	if c.ThumbnailWidth <= 0 || c.ThumbnailHeight <= 0 {
		return errors.New("thumbnail dimensions must be positive")
	}
	return nil
}

// RequireWorker validates the options the worker binaries cannot run
// without.
func (c *Config) RequireWorker() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for workers")
	}
	if c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required for workers")
	}
	if c.KafkaBrokers == "" {
		return errors.New("KAFKA_BROKERS is required for workers")
	}
	return nil
}

// RequireCaptioning validates the annotation worker's model options.
func (c *Config) RequireCaptioning() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required for the annotation worker")
	}
	return nil
}

// Brokers splits the comma-separated broker list.
func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

// SlogLevel maps the configured log level onto slog's levels.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
