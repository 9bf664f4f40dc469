package eventrelay

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	relayerrors "github.com/randalmurphal/eventrelay/pkg/eventrelay/errors"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/observability"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/storage"
)

// hangingStore blocks every Store call until its context ends.
type hangingStore struct {
	*storage.MemoryStore
}

func (s hangingStore) Store(ctx context.Context, _ storage.Record) error {
	<-ctx.Done()
	return ctx.Err()
}

// flakyStore fails the first n Store calls with a transient error.
type flakyStore struct {
	*storage.MemoryStore
	failures atomic.Int32
}

func (s *flakyStore) Store(ctx context.Context, rec storage.Record) error {
	if s.failures.Add(-1) >= 0 {
		return relayerrors.Transient(errors.New("database is locked"), "store")
	}
	return s.MemoryStore.Store(ctx, rec)
}

// slowLoadStore tracks how many Load calls run at once.
type slowLoadStore struct {
	*storage.MemoryStore
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *slowLoadStore) Load(ctx context.Context, eventType string) ([]storage.Record, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return s.MemoryStore.Load(ctx, eventType)
}

type unregistered struct {
	Value string `json:"value"`
}

func (unregistered) EventType() event.Type { return "cart_updated" }

func TestNew_NilStoreUsesOwnedMemory(t *testing.T) {
	h := New(nil, WithLogger(quietLogger()))
	h.Post(screen("Login"))
	require.NoError(t, h.Sync(context.Background()))

	assert.Len(t, pending(t, h, event.TypeScreenViewed), 1)
	assert.True(t, h.ownsStore)
	require.NoError(t, h.Close(context.Background()))
}

func TestNew_HydratesEveryRegisteredType(t *testing.T) {
	store := storage.NewMemoryStore()
	newTestHandler(t, store)

	assert.Equal(t, len(event.Builtin().AllTypes()), store.LoadCalls())
}

func TestHydration_RestoresPendingInOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	login, home := screen("Login"), screen("Home")
	shown := event.New(event.MessageShown{MessageID: "m-1", CampaignID: "c-1"})
	require.NoError(t, store.Store(ctx, storedRecord(t, login)))
	require.NoError(t, store.Store(ctx, storedRecord(t, shown)))
	require.NoError(t, store.Store(ctx, storedRecord(t, home)))

	h := newTestHandler(t, store)

	assert.Equal(t, []string{login.ID(), home.ID()}, eventIDs(pending(t, h, event.TypeScreenViewed)))
	assert.Equal(t, []string{shown.ID()}, eventIDs(pending(t, h, event.TypeMessageShown)))
	assert.Equal(t, int64(3), h.Stats().Pending)
}

func TestHydration_PostQueuedBehindLoad(t *testing.T) {
	store := storage.NewMemoryStore()
	stored := screen("Stored")
	require.NoError(t, store.Store(context.Background(), storedRecord(t, stored)))

	// Post before hydration has had a chance to run.
	h := New(store, WithLogger(quietLogger()))
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	h.Post(screen("Live"))
	settle(t, h)

	assert.Equal(t, []string{"Stored", "Live"}, screenNames(pending(t, h, event.TypeScreenViewed)))
}

func TestHydration_PartialFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	kept := screen("Login")
	shown := event.New(event.MessageShown{MessageID: "m-1"})
	require.NoError(t, store.Store(ctx, storedRecord(t, kept)))
	require.NoError(t, store.Store(ctx, storedRecord(t, shown)))
	store.FailLoad(string(event.TypeScreenViewed), errors.New("io error"))

	sink := &errorSink{}
	h := newTestHandler(t, store, WithOnError(sink.record))

	assert.Empty(t, pending(t, h, event.TypeScreenViewed))
	assert.Len(t, pending(t, h, event.TypeMessageShown), 1)
	assert.True(t, store.Contains(kept.ID()), "failed type stays in storage")

	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrHydrationIncomplete)
	assert.ErrorIs(t, errs[0], ErrStorageUnavailable)

	var storageErr *StorageError
	require.ErrorAs(t, errs[0], &storageErr)
	assert.Equal(t, "load", storageErr.Op)
	assert.Equal(t, event.TypeScreenViewed, storageErr.Type)

	// Reload picks the type up once storage recovers.
	store.FailLoad(string(event.TypeScreenViewed), nil)
	h.Reload()
	settle(t, h)
	assert.Equal(t, []string{kept.ID()}, eventIDs(pending(t, h, event.TypeScreenViewed)))
}

func TestHydration_SkipsUndecodableRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	good := screen("Good")
	require.NoError(t, store.Store(ctx, storage.Record{
		ID:   "corrupt",
		Type: string(event.TypeScreenViewed),
		Data: []byte("{not json"),
	}))
	require.NoError(t, store.Store(ctx, storedRecord(t, good)))

	h := newTestHandler(t, store)

	assert.Equal(t, []string{good.ID()}, eventIDs(pending(t, h, event.TypeScreenViewed)))
	assert.True(t, store.Contains("corrupt"))
}

func TestHydration_ConcurrencyLimit(t *testing.T) {
	store := &slowLoadStore{MemoryStore: storage.NewMemoryStore()}
	newTestHandler(t, store, WithHydrationConcurrency(2))

	assert.LessOrEqual(t, store.maxSeen.Load(), int32(2))
	assert.GreaterOrEqual(t, store.maxSeen.Load(), int32(1))
}

func TestReload_KeepsEventsStorageNeverAcknowledged(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	store.FailStore(errors.New("disk full"))
	h.Post(screen("Unsaved"))
	settle(t, h)
	store.FailStore(nil)

	h.Post(screen("Saved"))
	h.Reload()
	settle(t, h)

	assert.Equal(t, []string{"Unsaved", "Saved"}, screenNames(pending(t, h, event.TypeScreenViewed)))
	assert.Equal(t, int64(2), h.Stats().Pending)
}

func TestReload_KeepsPostOrderOverTimestamps(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)
	now := time.Now()

	store.FailStore(errors.New("disk full"))
	h.Post(event.New(event.ScreenViewed{Name: "A"}, event.WithTimestamp(now.Add(2*time.Second))))
	settle(t, h)
	store.FailStore(nil)

	h.Post(event.New(event.ScreenViewed{Name: "B"}, event.WithTimestamp(now.Add(time.Second))))
	h.Post(event.New(event.ScreenViewed{Name: "C"}, event.WithTimestamp(now)))
	settle(t, h)
	require.Equal(t, []string{"A", "B", "C"}, screenNames(pending(t, h, event.TypeScreenViewed)))

	h.Reload()
	settle(t, h)
	assert.Equal(t, []string{"A", "B", "C"}, screenNames(pending(t, h, event.TypeScreenViewed)))

	obs := &recorder{}
	h.AddObserver(event.TypeScreenViewed, obs)
	settle(t, h)
	assert.Equal(t, []string{"A", "B", "C"}, screenNames(obs.received()))
}

func TestReload_DropsRecordsPurgedFromStorage(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	purged := screen("Purged")
	h.Post(purged)
	h.Post(screen("Kept"))
	settle(t, h)

	require.NoError(t, store.Remove(context.Background(), purged.ID()))
	h.Reload()
	settle(t, h)

	assert.Equal(t, []string{"Kept"}, screenNames(pending(t, h, event.TypeScreenViewed)))
	assert.Equal(t, int64(1), h.Stats().Pending)
}

func TestReload_ReplaysStoredRecordsForObservedTypes(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	h.Post(screen("Login"))
	settle(t, h)

	// The replayed record cannot be removed, so it survives in storage.
	store.FailRemove(errors.New("read-only"))
	obs := &recorder{}
	h.AddObserver(event.TypeScreenViewed, obs)
	settle(t, h)
	store.FailRemove(nil)
	require.Equal(t, 1, store.Len())

	h.Reload()
	h.Post(screen("Next"))
	settle(t, h)

	// At-least-once: the stale record is redelivered before newer traffic.
	assert.Equal(t, []string{"Login", "Login", "Next"}, screenNames(obs.received()))
	assert.Empty(t, pending(t, h, event.TypeScreenViewed))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(0), h.Stats().Pending)
}

func TestPost_StorageFailureKeepsEventInMemory(t *testing.T) {
	store := storage.NewMemoryStore()
	store.FailStore(errors.New("disk full"))
	sink := &errorSink{}
	h := newTestHandler(t, store, WithOnError(sink.record))

	evt := screen("Login")
	h.Post(evt)
	settle(t, h)

	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStorageUnavailable)
	var storageErr *StorageError
	require.ErrorAs(t, errs[0], &storageErr)
	assert.Equal(t, "store", storageErr.Op)
	assert.Equal(t, evt.ID(), storageErr.ID)

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(1), h.Stats().StorageErrors)

	// Still delivered once an observer appears.
	obs := &recorder{}
	h.AddObserver(event.TypeScreenViewed, obs)
	settle(t, h)
	assert.Equal(t, []string{"Login"}, screenNames(obs.received()))
	assert.Empty(t, pending(t, h, event.TypeScreenViewed))
}

func TestPost_StorageTimeout(t *testing.T) {
	store := hangingStore{MemoryStore: storage.NewMemoryStore()}
	sink := &errorSink{}
	h := newTestHandler(t, store,
		WithStorageTimeout(20*time.Millisecond),
		WithOnError(sink.record),
	)

	start := time.Now()
	h.Post(screen("Login"))
	settle(t, h)

	assert.Less(t, time.Since(start), 2*time.Second)
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStorageUnavailable)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
	var timeoutErr *relayerrors.TimeoutError
	require.ErrorAs(t, errs[0], &timeoutErr)
	assert.Equal(t, "storage store", timeoutErr.Operation)
	assert.Equal(t, "20ms", timeoutErr.Duration)
	assert.Equal(t, relayerrors.CategoryTransient, relayerrors.Categorize(errs[0]))
	assert.Len(t, pending(t, h, event.TypeScreenViewed), 1)
}

func TestPost_RetriesTransientStorageErrors(t *testing.T) {
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	store.failures.Store(2)
	sink := &errorSink{}
	h := newTestHandler(t, store,
		WithStorageRetry(relayerrors.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffFactor: 2}),
		WithOnError(sink.record),
	)

	h.Post(screen("Login"))
	settle(t, h)

	assert.Empty(t, sink.all())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(1), h.Stats().Persisted)
}

func TestPost_DuplicateIDKeptOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	evt := screen("Login")
	h.Post(evt)
	h.Post(evt)
	settle(t, h)

	assert.Len(t, pending(t, h, event.TypeScreenViewed), 1)
	assert.Equal(t, 1, store.Len())
}

func TestPost_UnregisteredTypeStaysInMemory(t *testing.T) {
	store := storage.NewMemoryStore()
	sink := &errorSink{}
	h := newTestHandler(t, store, WithOnError(sink.record))

	h.Post(event.New(unregistered{Value: "x"}))
	settle(t, h)

	assert.Equal(t, 0, store.StoreCalls())
	assert.Len(t, pending(t, h, "cart_updated"), 1)
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], event.ErrUnknownType)
	assert.ErrorIs(t, errs[0], ErrStorageUnavailable)
}

func TestPost_NilIgnored(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	h.Post(nil)
	settle(t, h)
	assert.Equal(t, int64(0), h.Stats().Posted)
}

func TestObserverFailure_CountsAsDelivered(t *testing.T) {
	store := storage.NewMemoryStore()
	sink := &errorSink{}
	h := newTestHandler(t, store, WithOnError(sink.record))

	failing := &recorder{err: errors.New("render failed")}
	healthy := &recorder{}
	h.AddObserver(event.TypeMessageClicked, failing)
	h.AddObserver(event.TypeMessageClicked, event.ObserverFunc(func(context.Context, event.Event) error {
		panic("boom")
	}))
	h.AddObserver(event.TypeMessageClicked, healthy)

	h.Post(event.New(event.MessageClicked{MessageID: "m-1", ActionURL: "app://home"}))
	settle(t, h)

	assert.Len(t, failing.received(), 1)
	assert.Len(t, healthy.received(), 1)
	assert.Equal(t, 0, store.StoreCalls())

	errs := sink.all()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrObserverFailed)
		var obsErr *event.ObserverError
		assert.ErrorAs(t, err, &obsErr)
	}
	assert.Equal(t, int64(2), h.Stats().ObserverErrors)
}

func TestReplay_FailingObserverStillDrains(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store, WithOnError(func(error) {}))

	h.Post(screen("Login"))
	settle(t, h)

	h.AddObserver(event.TypeScreenViewed, &recorder{err: errors.New("nope")})
	settle(t, h)

	assert.Empty(t, pending(t, h, event.TypeScreenViewed))
	assert.Equal(t, 0, store.Len())
}

func TestReplay_RemoveFailureIsReported(t *testing.T) {
	store := storage.NewMemoryStore()
	sink := &errorSink{}
	h := newTestHandler(t, store, WithOnError(sink.record))

	h.Post(screen("Login"))
	settle(t, h)
	store.FailRemove(errors.New("read-only"))

	obs := &recorder{}
	h.AddObserver(event.TypeScreenViewed, obs)
	settle(t, h)

	assert.Len(t, obs.received(), 1)
	assert.Empty(t, pending(t, h, event.TypeScreenViewed))
	assert.Equal(t, 1, store.Len(), "record left for at-least-once replay after restart")

	errs := sink.all()
	require.Len(t, errs, 1)
	var storageErr *StorageError
	require.ErrorAs(t, errs[0], &storageErr)
	assert.Equal(t, "remove", storageErr.Op)
}

func TestReplay_OnlyMatchingType(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	h.Post(screen("Login"))
	h.Post(event.New(event.MessageDismissed{MessageID: "m-1"}))
	settle(t, h)

	obs := &recorder{}
	h.AddObserver(event.TypeMessageDismissed, obs)
	settle(t, h)

	assert.Len(t, obs.received(), 1)
	assert.Len(t, pending(t, h, event.TypeScreenViewed), 1)
}

func TestReentrant_PostFromObserver(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	h.AddObserver(event.TypeAppLaunched, event.ObserverFunc(func(_ context.Context, evt event.Event) error {
		h.Post(screen("Splash"))
		return nil
	}))
	h.Post(event.New(event.AppLaunched{LaunchCount: 1}))
	settle(t, h)

	assert.Equal(t, []string{"Splash"}, screenNames(pending(t, h, event.TypeScreenViewed)))
}

func TestReentrant_AddAndRemoveObserverFromObserver(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	h.Post(screen("Queued"))
	settle(t, h)

	inner := &recorder{}
	var outer event.Subscription
	outer = h.AddObserver(event.TypeAppLaunched, event.ObserverFunc(func(_ context.Context, _ event.Event) error {
		h.AddObserver(event.TypeScreenViewed, inner)
		h.RemoveObserver(outer)
		return nil
	}))
	h.Post(event.New(event.AppLaunched{LaunchCount: 1}))
	settle(t, h)

	assert.Equal(t, []string{"Queued"}, screenNames(inner.received()))

	h.Post(event.New(event.AppLaunched{LaunchCount: 2}))
	settle(t, h)
	assert.Len(t, pending(t, h, event.TypeAppLaunched), 1)
}

func TestReentrant_SyncAndCloseFromObserver(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	var syncErr, closeErr error
	var pendingInside []event.Event
	h.AddObserver(event.TypeAppLaunched, event.ObserverFunc(func(ctx context.Context, _ event.Event) error {
		syncErr = h.Sync(ctx)
		closeErr = h.Close(ctx)
		pendingInside, _ = h.Pending(ctx, event.TypeScreenViewed)
		return nil
	}))
	h.Post(screen("Login"))
	h.Post(event.New(event.AppLaunched{}))
	settle(t, h)

	assert.ErrorIs(t, syncErr, ErrReentrantSync)
	assert.ErrorIs(t, closeErr, ErrReentrantSync)
	assert.Len(t, pendingInside, 1)
}

func TestRemoveObservers(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	a, b := &recorder{}, &recorder{}
	h.AddObserver(event.TypePushTokenRegistered, a)
	h.AddObserver(event.TypePushTokenRegistered, b)
	h.RemoveObservers(event.TypePushTokenRegistered)
	h.Post(event.New(event.PushTokenRegistered{Token: "tok", Environment: "sandbox"}))
	settle(t, h)

	assert.Empty(t, a.received())
	assert.Empty(t, b.received())
	assert.Equal(t, 1, store.StoreCalls())
}

func TestAddObserver_Nil(t *testing.T) {
	h := newTestHandler(t, storage.NewMemoryStore())
	assert.True(t, h.AddObserver(event.TypeScreenViewed, nil).IsZero())
	h.RemoveObserver(event.Subscription{})
}

func TestSync_ContextCanceled(t *testing.T) {
	h := newTestHandler(t, storage.NewMemoryStore())

	block := make(chan struct{})
	h.AddObserver(event.TypeAppLaunched, event.ObserverFunc(func(context.Context, event.Event) error {
		<-block
		return nil
	}))
	h.Post(event.New(event.AppLaunched{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Sync(ctx), context.DeadlineExceeded)

	_, err := h.Pending(ctx, event.TypeAppLaunched)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	settle(t, h)
}

func TestClose(t *testing.T) {
	store := storage.NewMemoryStore()
	h := New(store, WithLogger(quietLogger()), WithOwnedStore())

	h.Post(screen("Login"))
	require.NoError(t, h.Close(context.Background()))

	// Queued work ran before the store closed.
	assert.Equal(t, int64(1), h.Stats().Persisted)
	_, err := store.Load(context.Background(), string(event.TypeScreenViewed))
	assert.ErrorIs(t, err, storage.ErrStoreClosed)

	// After close: calls are dropped, blocking calls fail fast.
	h.Post(screen("Late"))
	assert.ErrorIs(t, h.Sync(context.Background()), ErrClosed)
	_, err = h.Pending(context.Background(), event.TypeScreenViewed)
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, h.Close(context.Background()))
}

func TestClose_RetryAfterTimeoutClosesStore(t *testing.T) {
	store := storage.NewMemoryStore()
	h := New(store, WithLogger(quietLogger()), WithOwnedStore())

	release := make(chan struct{})
	h.AddObserver(event.TypeAppLaunched, event.ObserverFunc(func(context.Context, event.Event) error {
		<-release
		return nil
	}))
	h.Post(event.New(event.AppLaunched{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Close(ctx), context.DeadlineExceeded)

	_, err := store.Load(context.Background(), string(event.TypeScreenViewed))
	assert.NoError(t, err, "store stays open while tasks drain")

	close(release)
	require.NoError(t, h.Close(context.Background()))
	_, err = store.Load(context.Background(), string(event.TypeScreenViewed))
	assert.ErrorIs(t, err, storage.ErrStoreClosed)
	assert.NoError(t, h.Close(context.Background()))
}

func TestClose_BorrowedStoreLeftOpen(t *testing.T) {
	store := storage.NewMemoryStore()
	h := New(store, WithLogger(quietLogger()))
	require.NoError(t, h.Close(context.Background()))

	_, err := store.Load(context.Background(), string(event.TypeScreenViewed))
	assert.NoError(t, err)
}

func TestStats(t *testing.T) {
	store := storage.NewMemoryStore()
	h := newTestHandler(t, store)

	h.Post(screen("A"))
	h.Post(screen("B"))
	h.AddObserver(event.TypeScreenViewed, &recorder{})
	h.Post(screen("C"))
	settle(t, h)

	s := h.Stats()
	assert.Equal(t, int64(3), s.Posted)
	assert.Equal(t, int64(1), s.Delivered)
	assert.Equal(t, int64(2), s.Persisted)
	assert.Equal(t, int64(2), s.Replayed)
	assert.Equal(t, int64(0), s.Pending)
	assert.Equal(t, 0, s.Queued)
}

func TestObservability_SpansAndMetrics(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	h := newTestHandler(t, storage.NewMemoryStore(),
		WithSpans(observability.NewSpanManagerWithProvider(tp)),
		WithMetrics(observability.NewMetricsRecorderWithProvider(mp)),
	)
	h.Post(screen("Login"))
	h.AddObserver(event.TypeScreenViewed, &recorder{})
	settle(t, h)

	names := map[string]int{}
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, len(event.Builtin().AllTypes()), names["eventrelay.hydrate"])
	assert.Equal(t, 1, names["eventrelay.post"])
	assert.Equal(t, 1, names["eventrelay.replay"])
	assert.Equal(t, 1, names["eventrelay.storage.store"])
	assert.Equal(t, 1, names["eventrelay.storage.remove"])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	for _, name := range []string{
		"eventrelay.posts",
		"eventrelay.replayed",
		"eventrelay.storage.operations",
		"eventrelay.hydration.latency_ms",
	} {
		assert.True(t, found[name], "missing metric %s", name)
	}
}
