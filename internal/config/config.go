// Package config holds CLI defaults read from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config is the environment-level configuration for the kinda CLI. Flags
// override these values.
type Config struct {
	Format   string `env:"KINDA_FORMAT" envDefault:"text"`
	LogLevel string `env:"KINDA_LOG_LEVEL" envDefault:"info"`
	TraceDB  string `env:"KINDA_TRACE_DB" envDefault:":memory:"`
}

// Load parses Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("KINDA_FORMAT: invalid format %q: must be text or json", c.Format)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("KINDA_LOG_LEVEL: %w", err)
	}
	if c.TraceDB == "" {
		return fmt.Errorf("KINDA_TRACE_DB: must not be empty")
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewLogger returns a text logger on w at the configured level. verbose
// forces debug.
func (c Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
