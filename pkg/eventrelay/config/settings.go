package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ErrInvalidSettings is returned by Validate and FromConfig.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the resolved relay configuration.
type Settings struct {
	Storage       StorageSettings
	Hydration     HydrationSettings
	Observability ObservabilitySettings
	Log           LogSettings
}

// StorageSettings selects and tunes the durable backend.
type StorageSettings struct {
	Driver        string
	DSN           string
	Timeout       time.Duration
	RetryAttempts int
}

// HydrationSettings tunes the startup load.
type HydrationSettings struct {
	Concurrency int
}

// ObservabilitySettings toggles OTel instrumentation.
type ObservabilitySettings struct {
	Metrics bool
	Tracing bool
}

// LogSettings configures the slog handler.
type LogSettings struct {
	Level  string
	Format string
}

// Defaults returns the settings used when a key is absent.
func Defaults() Settings {
	return Settings{
		Storage: StorageSettings{
			Driver:        "memory",
			Timeout:       5 * time.Second,
			RetryAttempts: 1,
		},
		Hydration: HydrationSettings{Concurrency: 4},
		Log:       LogSettings{Level: "info", Format: "json"},
	}
}

// FromConfig resolves a Config into Settings, filling absent keys from
// Defaults, and validates the result.
func FromConfig(c Config) (Settings, error) {
	d := Defaults()
	s := Settings{
		Storage: StorageSettings{
			Driver:        strings.ToLower(c.String("storage.driver", d.Storage.Driver)),
			DSN:           c.String("storage.dsn", d.Storage.DSN),
			Timeout:       c.Duration("storage.timeout", d.Storage.Timeout),
			RetryAttempts: c.Int("storage.retry_attempts", d.Storage.RetryAttempts),
		},
		Hydration: HydrationSettings{
			Concurrency: c.Int("hydration.concurrency", d.Hydration.Concurrency),
		},
		Observability: ObservabilitySettings{
			Metrics: c.Bool("observability.metrics", d.Observability.Metrics),
			Tracing: c.Bool("observability.tracing", d.Observability.Tracing),
		},
		Log: LogSettings{
			Level:  strings.ToLower(c.String("log.level", d.Log.Level)),
			Format: strings.ToLower(c.String("log.format", d.Log.Format)),
		},
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges and enumerations.
func (s Settings) Validate() error {
	var errs []error

	switch s.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if s.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for driver %q", s.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres", s.Storage.Driver))
	}
	if s.Storage.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("storage.timeout must be positive, got %s", s.Storage.Timeout))
	}
	if s.Storage.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("storage.retry_attempts must be at least 1, got %d", s.Storage.RetryAttempts))
	}
	if s.Hydration.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("hydration.concurrency must be at least 1, got %d", s.Hydration.Concurrency))
	}
	if _, err := parseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if s.Log.Format != "json" && s.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, text", s.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// Logger builds a slog.Logger writing to w in the configured format and level.
func (l LogSettings) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
}
