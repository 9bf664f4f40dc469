package eventrelay

import (
	"context"
	"fmt"
	"io"

	"github.com/randalmurphal/eventrelay/pkg/eventrelay/config"
	relayerrors "github.com/randalmurphal/eventrelay/pkg/eventrelay/errors"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/observability"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/storage"
)

// NewFromConfig opens the configured store and builds a Handler that owns
// it. Logs go to logOut. Options in opts are applied last and override
// the settings.
func NewFromConfig(ctx context.Context, s config.Settings, logOut io.Writer, opts ...Option) (*Handler, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, storage.Driver(s.Storage.Driver), s.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", s.Storage.Driver, err)
	}

	retry := relayerrors.DefaultRetry
	retry.MaxAttempts = s.Storage.RetryAttempts

	base := []Option{
		WithLogger(s.Log.Logger(logOut)),
		WithStorageTimeout(s.Storage.Timeout),
		WithStorageRetry(retry),
		WithHydrationConcurrency(s.Hydration.Concurrency),
		WithOwnedStore(),
	}
	if s.Observability.Metrics {
		base = append(base, WithMetrics(observability.NewMetricsRecorder()))
	}
	if s.Observability.Tracing {
		base = append(base, WithSpans(observability.NewSpanManager()))
	}

	return New(store, append(base, opts...)...), nil
}
