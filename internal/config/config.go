// Package config loads process configuration from the environment and
// project seed files from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config is the process configuration, read from RELWATCH_-prefixed
// environment variables.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `envconfig:"DB_PATH" default:"relwatch.db"`

	// Workers bounds concurrent checks per scheduler pass.
	Workers int `default:"10"`

	// FetchTimeout is the default per-project fetch timeout.
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`

	// MaxRetries is the number of additional attempts for retryable
	// fetch failures.
	MaxRetries uint64 `envconfig:"MAX_RETRIES" default:"1"`

	// Interval between scheduler passes when running in loop mode.
	// Zero means single pass.
	Interval time.Duration

	// WebhookURL receives new-release events as JSON POSTs when set.
	WebhookURL string `envconfig:"WEBHOOK_URL"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `default:"production"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("relwatch", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return &cfg, nil
}

// NewLogger builds the process logger: console output in development,
// JSON everywhere else.
func NewLogger(cfg *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	if cfg.Environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}
