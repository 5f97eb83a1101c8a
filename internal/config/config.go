// Package config loads engine and ops-server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	RelayURL  string `env:"RELAY_URL"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	BaseReconnectDelay    time.Duration `env:"BASE_RECONNECT_DELAY" default:"1s"`
	MaxReconnectDelay     time.Duration `env:"MAX_RECONNECT_DELAY" default:"30s"`
	BatchWindow           time.Duration `env:"BATCH_WINDOW" default:"25ms"`
	OutboundQueueCapacity int           `env:"OUTBOUND_QUEUE_CAPACITY" default:"64"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.RelayURL == "" {
		return errors.New("RELAY_URL is required")
	}
	u, err := url.Parse(cfg.RelayURL)
	if err != nil {
		return fmt.Errorf("RELAY_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("RELAY_URL must use ws:// or wss://, got %q", u.Scheme)
	}

	if cfg.BaseReconnectDelay <= 0 {
		return errors.New("BASE_RECONNECT_DELAY must be positive")
	}
	if cfg.MaxReconnectDelay < cfg.BaseReconnectDelay {
		return errors.New("MAX_RECONNECT_DELAY must not be below BASE_RECONNECT_DELAY")
	}
	if cfg.BatchWindow <= 0 {
		return errors.New("BATCH_WINDOW must be positive")
	}
	if cfg.OutboundQueueCapacity < 0 {
		return errors.New("OUTBOUND_QUEUE_CAPACITY must not be negative")
	}

	return nil
}
