// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/liamcoop/arules/internal/logger"
)

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Server configures cmd/server.
type Server struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MigrationsPath  string        `env:"MIGRATIONS_PATH" envDefault:"migrations"`

	Log Log
}

// Log holds the logging settings shared by every binary.
type Log struct {
	Level           string `env:"LOG_LEVEL" envDefault:"info"`
	Format          string `env:"LOG_FORMAT" envDefault:"json"`
	ErrorSampleRate int    `env:"ERROR_SAMPLE_RATE" envDefault:"1"`
	OTELEnabled     bool   `env:"OTEL_ENABLED"`
	ServiceName     string `env:"OTEL_SERVICE_NAME" envDefault:"arules"`
}

// LoadServer parses the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Server{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	return cfg, nil
}

// Addr returns the listen address for the configured port.
func (s Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// UsesDatabase reports whether rule definitions are persisted in PostgreSQL.
func (s Server) UsesDatabase() bool {
	return s.DatabaseURL != ""
}

// Options converts the log settings for logger.Init.
func (l Log) Options() logger.Options {
	return logger.Options{
		Level:           l.Level,
		Format:          l.Format,
		ErrorSampleRate: l.ErrorSampleRate,
		OTELEnabled:     l.OTELEnabled,
		ServiceName:     l.ServiceName,
	}
}
