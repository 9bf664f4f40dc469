package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for relay metrics.
const MeterName = "eventrelay"

// MetricsRecorder records relay metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPost records a live post and whether any observer received it.
	RecordPost(ctx context.Context, eventType string, delivered bool)

	// RecordReplay records events delivered from the pending set to a new observer.
	RecordReplay(ctx context.Context, eventType string, delivered int)

	// RecordStorageOp records a storage call with its latency and error status.
	RecordStorageOp(ctx context.Context, op, eventType string, duration time.Duration, err error)

	// RecordPending adjusts the in-memory pending gauge for a type.
	RecordPending(ctx context.Context, eventType string, delta int64)

	// RecordHydration records the load of one type at startup.
	RecordHydration(ctx context.Context, eventType string, records int, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	posts            metric.Int64Counter
	replayed         metric.Int64Counter
	storageOps       metric.Int64Counter
	storageLatency   metric.Float64Histogram
	storageErrors    metric.Int64Counter
	pending          metric.Int64UpDownCounter
	hydrated         metric.Int64Counter
	hydrationLatency metric.Float64Histogram
	hydrationErrors  metric.Int64Counter
}

// newOtelMetrics creates instruments on the given meter provider.
func newOtelMetrics(mp metric.MeterProvider) (*otelMetrics, error) {
	meter := mp.Meter(MeterName)
	m := &otelMetrics{}
	var err error

	if m.posts, err = meter.Int64Counter("eventrelay.posts",
		metric.WithDescription("Number of events posted"),
	); err != nil {
		return nil, err
	}

	if m.replayed, err = meter.Int64Counter("eventrelay.replayed",
		metric.WithDescription("Number of pending events delivered by replay"),
	); err != nil {
		return nil, err
	}

	if m.storageOps, err = meter.Int64Counter("eventrelay.storage.operations",
		metric.WithDescription("Number of storage calls"),
	); err != nil {
		return nil, err
	}

	if m.storageLatency, err = meter.Float64Histogram("eventrelay.storage.latency_ms",
		metric.WithDescription("Storage call latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.storageErrors, err = meter.Int64Counter("eventrelay.storage.errors",
		metric.WithDescription("Number of failed storage calls"),
	); err != nil {
		return nil, err
	}

	if m.pending, err = meter.Int64UpDownCounter("eventrelay.pending",
		metric.WithDescription("Events held in memory awaiting an observer"),
	); err != nil {
		return nil, err
	}

	if m.hydrated, err = meter.Int64Counter("eventrelay.hydration.records",
		metric.WithDescription("Number of records loaded at startup"),
	); err != nil {
		return nil, err
	}

	if m.hydrationLatency, err = meter.Float64Histogram("eventrelay.hydration.latency_ms",
		metric.WithDescription("Per-type hydration latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.hydrationErrors, err = meter.Int64Counter("eventrelay.hydration.errors",
		metric.WithDescription("Number of types that failed to hydrate"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses the global OTel
// meter provider. If initialization fails, returns a no-op recorder.
//
// Configure the provider before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	return NewMetricsRecorderWithProvider(otel.GetMeterProvider())
}

// NewMetricsRecorderWithProvider returns a MetricsRecorder bound to mp.
func NewMetricsRecorderWithProvider(mp metric.MeterProvider) MetricsRecorder {
	m, err := newOtelMetrics(mp)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordPost(ctx context.Context, eventType string, delivered bool) {
	m.posts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("delivered", delivered),
	))
}

func (m *otelMetrics) RecordReplay(ctx context.Context, eventType string, delivered int) {
	if delivered <= 0 {
		return
	}
	m.replayed.Add(ctx, int64(delivered), metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

func (m *otelMetrics) RecordStorageOp(ctx context.Context, op, eventType string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("event_type", eventType),
	)
	m.storageOps.Add(ctx, 1, attrs)
	m.storageLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.storageErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordPending(ctx context.Context, eventType string, delta int64) {
	if delta == 0 {
		return
	}
	m.pending.Add(ctx, delta, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

func (m *otelMetrics) RecordHydration(ctx context.Context, eventType string, records int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))
	m.hydrationLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.hydrationErrors.Add(ctx, 1, attrs)
		return
	}
	m.hydrated.Add(ctx, int64(records), attrs)
}
