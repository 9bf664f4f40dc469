// Package observability provides logging, metrics, and tracing for the
// event relay.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "screen_viewed", evt.ID())
//	enriched.Warn("persist failed") // includes event_type, event_id
func EnrichLogger(logger *slog.Logger, eventType, eventID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
	)
}

// LogPosted logs the outcome of a live post.
func LogPosted(logger *slog.Logger, eventType, eventID string, delivered bool) {
	if logger == nil {
		return
	}
	logger.Debug("event posted",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.Bool("delivered", delivered),
	)
}

// LogPersisted logs that an unobserved event was written to storage.
func LogPersisted(logger *slog.Logger, eventType, eventID string, attempts int) {
	if logger == nil {
		return
	}
	logger.Debug("event persisted",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.Int("attempts", attempts),
	)
}

// LogReplayed logs a replay pass for a newly attached observer.
func LogReplayed(logger *slog.Logger, eventType string, subscriptionID uint64, delivered, remaining int) {
	if logger == nil {
		return
	}
	logger.Debug("pending events replayed",
		slog.String("event_type", eventType),
		slog.Uint64("subscription_id", subscriptionID),
		slog.Int("delivered", delivered),
		slog.Int("remaining", remaining),
	)
}

// LogStorageError logs a storage failure. Non-fatal: the relay keeps the
// event in memory.
func LogStorageError(logger *slog.Logger, op, eventType, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("storage operation failed",
		slog.String("operation", op),
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// LogObserverError logs an observer that returned an error or panicked.
func LogObserverError(logger *slog.Logger, eventType, eventID string, subscriptionID uint64, err error) {
	if logger == nil {
		return
	}
	logger.Error("observer failed",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.Uint64("subscription_id", subscriptionID),
		slog.String("error", err.Error()),
	)
}

// LogDecodeError logs a stored record that could not be decoded and was
// skipped during hydration.
func LogDecodeError(logger *slog.Logger, eventType, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("stored event skipped",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// LogHydrationComplete logs the end of startup hydration.
func LogHydrationComplete(logger *slog.Logger, types, records, failed int, durationMs float64) {
	if logger == nil {
		return
	}
	level := slog.LevelInfo
	if failed > 0 {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "hydration completed",
		slog.Int("types", types),
		slog.Int("records", records),
		slog.Int("failed_types", failed),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogHydrationError logs a per-type load failure during hydration.
func LogHydrationError(logger *slog.Logger, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("hydration failed for type",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
