// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server's configuration.
type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/planner.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	// RedisURL enables cross-process change fan-out. Empty keeps it in
	// process.
	RedisURL string `env:"REDIS_URL"`

	// GatePasswordHash is a bcrypt hash of the shared password. Empty
	// leaves the API open.
	GatePasswordHash string `env:"GATE_PASSWORD_HASH"`

	SeedDemo     bool          `env:"SEED_DEMO" envDefault:"true"`
	SessionSweep time.Duration `env:"SESSION_SWEEP" envDefault:"1h"`
}

// ClientConfig configures planctl.
type ClientConfig struct {
	ServerURL string `env:"PLANNER_URL" envDefault:"http://localhost:8080"`
	Password  string `env:"PLANNER_PASSWORD"`

	// DBPath opens a server database directly instead of going over HTTP.
	// It takes precedence over ServerURL.
	DBPath string `env:"PLANNER_DB"`

	CachePath string        `env:"PLANNER_CACHE" envDefault:"planner-cache.db"`
	Scope     string        `env:"PLANNER_SCOPE" envDefault:"default"`
	LogLevel  slog.Level    `env:"LOG_LEVEL" envDefault:"WARN"`
	Timeout   time.Duration `env:"PLANNER_TIMEOUT" envDefault:"30s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

func LoadClient() (*ClientConfig, error) {
	cfg, err := env.ParseAs[ClientConfig]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Scope == "" {
		return nil, errors.New("PLANNER_SCOPE must not be empty")
	}
	return &cfg, nil
}
