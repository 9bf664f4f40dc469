package eventrelay

import (
	"log/slog"
	"time"

	relayerrors "github.com/randalmurphal/eventrelay/pkg/eventrelay/errors"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/observability"
)

// handlerConfig holds construction-time settings for a Handler.
type handlerConfig struct {
	logger               *slog.Logger
	registry             *event.Registry
	metrics              observability.MetricsRecorder
	spans                observability.SpanManager
	storageTimeout       time.Duration
	retry                relayerrors.RetryConfig
	hydrationConcurrency int
	onError              func(error)
	ownsStore            bool
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		logger:               slog.Default(),
		metrics:              observability.NoopMetrics{},
		spans:                observability.NoopSpanManager{},
		storageTimeout:       5 * time.Second,
		retry:                relayerrors.NoRetry,
		hydrationConcurrency: 4,
	}
}

// Option configures a Handler.
type Option func(*handlerConfig)

// WithLogger sets the logger for diagnostics.
// Default: slog.Default(). A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// WithRegistry sets the catalog of event kinds used for hydration and decoding.
// Default: event.Builtin().
func WithRegistry(r *event.Registry) Option {
	return func(c *handlerConfig) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithMetrics enables metrics recording.
//
// Example:
//
//	handler := eventrelay.New(store,
//	    eventrelay.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *handlerConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans enables tracing of posts, replays, hydration, and storage calls.
func WithSpans(s observability.SpanManager) Option {
	return func(c *handlerConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithStorageTimeout bounds each individual storage call.
// Default: 5s. Non-positive values are ignored.
//
// A hung backend stalls the task queue for at most this duration
// times the retry attempts.
func WithStorageTimeout(d time.Duration) Option {
	return func(c *handlerConfig) {
		if d > 0 {
			c.storageTimeout = d
		}
	}
}

// WithStorageRetry retries transient storage failures.
// Default: relayerrors.NoRetry.
func WithStorageRetry(cfg relayerrors.RetryConfig) Option {
	return func(c *handlerConfig) {
		c.retry = cfg
	}
}

// WithHydrationConcurrency limits how many types load in parallel at startup.
// Default: 4. Non-positive values are ignored.
func WithHydrationConcurrency(n int) Option {
	return func(c *handlerConfig) {
		if n > 0 {
			c.hydrationConcurrency = n
		}
	}
}

// WithOnError receives every reported failure: storage errors (matching
// ErrStorageUnavailable), observer failures (ErrObserverFailed), and
// hydration failures (ErrHydrationIncomplete).
//
// The callback runs on the handler's task goroutine and must not block.
func WithOnError(fn func(error)) Option {
	return func(c *handlerConfig) {
		c.onError = fn
	}
}

// WithOwnedStore makes Close also close the store.
func WithOwnedStore() Option {
	return func(c *handlerConfig) {
		c.ownsStore = true
	}
}
