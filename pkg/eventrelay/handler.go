package eventrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	relayerrors "github.com/randalmurphal/eventrelay/pkg/eventrelay/errors"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/observability"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/storage"
)

// Handler routes events to observers and holds unobserved events until an
// observer for their type appears.
//
// All state changes run on a single task goroutine in submission order.
// Post, AddObserver, RemoveObserver, RemoveObservers, and Reload only
// enqueue, so they never block and are safe to call from inside observers.
type Handler struct {
	store    storage.Store
	registry *event.Registry
	bus      *event.LocalBus
	queue    *taskQueue

	logger               *slog.Logger
	metrics              observability.MetricsRecorder
	spans                observability.SpanManager
	onError              func(error)
	storageTimeout       time.Duration
	retry                relayerrors.RetryConfig
	hydrationConcurrency int
	ownsStore            bool

	// pending is only touched by tasks.
	pending map[event.Type][]*pendingEvent

	stats     counters
	stopOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// pendingEvent is an unobserved event awaiting replay.
type pendingEvent struct {
	evt event.Event
	// durable is set once the store acknowledged the record.
	durable bool
}

// queueKey marks contexts handed to tasks and observers.
type queueKey struct{}

// New creates a Handler backed by store and starts its task goroutine.
// Hydration from store is queued first, so every later call observes
// the loaded pending set.
//
// A nil store selects an in-memory store owned by the handler.
func New(store storage.Store, opts ...Option) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if store == nil {
		store = storage.NewMemoryStore()
		cfg.ownsStore = true
	}
	if cfg.registry == nil {
		cfg.registry = event.Builtin()
	}

	h := &Handler{
		store:                store,
		registry:             cfg.registry,
		queue:                newTaskQueue(),
		logger:               cfg.logger,
		metrics:              cfg.metrics,
		spans:                cfg.spans,
		onError:              cfg.onError,
		storageTimeout:       cfg.storageTimeout,
		retry:                cfg.retry,
		hydrationConcurrency: cfg.hydrationConcurrency,
		ownsStore:            cfg.ownsStore,
		pending:              make(map[event.Type][]*pendingEvent),
	}
	h.bus = event.NewBus(event.BusConfig{OnError: h.observerFailed})

	go h.queue.run(context.WithValue(context.Background(), queueKey{}, h))
	h.queue.submit(h.hydrate)
	return h
}

// Post delivers evt to the current observers of its type. If there are
// none, the event is kept in memory and written to storage for replay.
//
// Post returns immediately. Failures are logged and passed to the
// WithOnError callback.
func (h *Handler) Post(evt event.Event) {
	if evt == nil {
		return
	}
	h.submit("post", func(ctx context.Context) {
		h.post(ctx, evt)
	})
}

// AddObserver registers obs for events of type t and replays, in order,
// every pending event of that type to it.
//
// The returned handle is valid immediately; registration and replay run
// on the task queue after all previously submitted work.
func (h *Handler) AddObserver(t event.Type, obs event.Observer) event.Subscription {
	if obs == nil {
		return event.Subscription{}
	}
	sub := h.bus.Reserve(t)
	h.submit("add_observer", func(ctx context.Context) {
		h.bus.Attach(sub, obs)
		h.replay(ctx, sub.Type, sub.ID)
	})
	return sub
}

// RemoveObserver unregisters one observer. Pending events are untouched.
func (h *Handler) RemoveObserver(sub event.Subscription) {
	if sub.IsZero() {
		return
	}
	h.submit("remove_observer", func(context.Context) {
		h.bus.Unsubscribe(sub)
	})
}

// RemoveObservers unregisters every observer of type t.
func (h *Handler) RemoveObservers(t event.Type) {
	h.submit("remove_observers", func(context.Context) {
		h.bus.UnsubscribeType(t)
	})
}

// Reload re-reads pending events from storage. Loaded records replace the
// in-memory set for each type; events the store never acknowledged are
// kept. Running it twice yields the same set.
func (h *Handler) Reload() {
	h.submit("reload", h.hydrate)
}

// Sync blocks until every task submitted before it has run.
//
// Observers must not call Sync with the context they were given; doing so
// returns ErrReentrantSync.
func (h *Handler) Sync(ctx context.Context) error {
	if onQueue(ctx, h) {
		return ErrReentrantSync
	}
	done := make(chan struct{})
	if !h.queue.submit(func(context.Context) { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the events of type t awaiting an observer, oldest first.
// From inside an observer it reads the current set directly.
func (h *Handler) Pending(ctx context.Context, t event.Type) ([]event.Event, error) {
	if onQueue(ctx, h) {
		return h.pendingEvents(t), nil
	}

	result := make(chan []event.Event, 1)
	if !h.queue.submit(func(context.Context) { result <- h.pendingEvents(t) }) {
		return nil, ErrClosed
	}
	select {
	case events := <-result:
		return events, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns a snapshot of the handler's counters.
func (h *Handler) Stats() Stats {
	return h.stats.snapshot(h.queue.len())
}

// Close stops accepting work, waits for queued tasks to finish, and closes
// the store if the handler owns it.
//
// If ctx ends first, Close returns its error and the remaining tasks keep
// draining in the background. Call Close again to finish closing the store.
// Once the store is closed, later calls return the first result.
func (h *Handler) Close(ctx context.Context) error {
	if onQueue(ctx, h) {
		return ErrReentrantSync
	}
	h.stopOnce.Do(h.queue.close)

	select {
	case <-h.queue.done:
	default:
		select {
		case <-h.queue.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h.closeOnce.Do(func() {
		if !h.ownsStore {
			return
		}
		if err := h.store.Close(); err != nil {
			h.closeErr = &StorageError{Op: "close", Err: err}
		}
	})
	return h.closeErr
}

func (h *Handler) submit(op string, t task) {
	if h.queue.submit(t) {
		return
	}
	if h.logger != nil {
		h.logger.Warn("handler closed, call dropped", slog.String("operation", op))
	}
}

func onQueue(ctx context.Context, h *Handler) bool {
	owner, _ := ctx.Value(queueKey{}).(*Handler)
	return owner == h
}

// post runs on the queue.
func (h *Handler) post(ctx context.Context, evt event.Event) {
	t := evt.Type()
	ctx, span := h.spans.StartPostSpan(ctx, string(t), evt.ID())

	h.stats.posted.Add(1)
	delivered := h.bus.Post(ctx, evt)
	h.metrics.RecordPost(ctx, string(t), delivered)
	observability.LogPosted(h.logger, string(t), evt.ID(), delivered)

	if delivered {
		h.stats.delivered.Add(1)
		h.spans.EndSpanWithError(span, nil)
		return
	}
	h.spans.EndSpanWithError(span, h.persist(ctx, evt))
}

// persist keeps evt in memory, then mirrors it to storage. The in-memory
// copy survives any storage failure.
func (h *Handler) persist(ctx context.Context, evt event.Event) error {
	t := evt.Type()
	for _, p := range h.pending[t] {
		if p.evt.ID() == evt.ID() {
			return nil
		}
	}

	p := &pendingEvent{evt: evt}
	h.pending[t] = append(h.pending[t], p)
	h.stats.pending.Add(1)
	h.metrics.RecordPending(ctx, string(t), 1)

	if err := h.registry.Validate(evt); err != nil {
		err = &StorageError{Op: "store", Type: t, ID: evt.ID(), Err: relayerrors.Permanent(err, "validate event")}
		h.storageFailed(err)
		return err
	}

	data, err := event.Marshal(evt)
	if err != nil {
		err = &StorageError{Op: "store", Type: t, ID: evt.ID(), Err: relayerrors.Permanent(err, "encode event")}
		h.storageFailed(err)
		return err
	}

	rec := storage.Record{
		ID:        evt.ID(),
		Type:      string(t),
		CreatedAt: evt.Timestamp(),
		Data:      data,
	}
	attempts, err := h.storageCall(ctx, "store", t, evt.ID(), func(ctx context.Context) error {
		return h.store.Store(ctx, rec)
	})
	if err != nil {
		h.storageFailed(err)
		return err
	}

	p.durable = true
	h.stats.persisted.Add(1)
	observability.LogPersisted(h.logger, string(t), evt.ID(), attempts)
	return nil
}

// replay drains pending events of type t through the bus, oldest first.
// It stops at the first event nobody receives. subID names the observer
// that triggered it, or 0 for a reload.
func (h *Handler) replay(ctx context.Context, t event.Type, subID uint64) {
	snapshot := slices.Clone(h.pending[t])
	if len(snapshot) == 0 {
		return
	}

	ctx, span := h.spans.StartReplaySpan(ctx, string(t), len(snapshot))
	delivered := 0
	for _, p := range snapshot {
		if !h.bus.Post(ctx, p.evt) {
			h.spans.AddSpanEvent(ctx, "replay.stopped")
			break
		}
		delivered++
		h.stats.replayed.Add(1)
		h.dropPending(ctx, t, p.evt.ID())

		id := p.evt.ID()
		if _, err := h.storageCall(ctx, "remove", t, id, func(ctx context.Context) error {
			return h.store.Remove(ctx, id)
		}); err != nil {
			h.storageFailed(err)
		}
	}

	h.metrics.RecordReplay(ctx, string(t), delivered)
	observability.LogReplayed(h.logger, string(t), subID, delivered, len(h.pending[t]))
	h.spans.EndSpanWithError(span, nil)
}

func (h *Handler) dropPending(ctx context.Context, t event.Type, id string) {
	events := h.pending[t]
	for i, p := range events {
		if p.evt.ID() != id {
			continue
		}
		events = slices.Delete(events, i, i+1)
		if len(events) == 0 {
			delete(h.pending, t)
		} else {
			h.pending[t] = events
		}
		h.stats.pending.Add(-1)
		h.metrics.RecordPending(ctx, string(t), -1)
		return
	}
}

func (h *Handler) pendingEvents(t event.Type) []event.Event {
	events := make([]event.Event, 0, len(h.pending[t]))
	for _, p := range h.pending[t] {
		events = append(events, p.evt)
	}
	return events
}

// hydrateResult is one type's load outcome.
type hydrateResult struct {
	events []*pendingEvent
	err    error
}

// hydrate loads every registered type in parallel, then swaps the results
// into the pending set on the queue goroutine.
func (h *Handler) hydrate(ctx context.Context) {
	done := observability.TimedOperation()
	types := h.registry.AllTypes()
	results := make([]hydrateResult, len(types))

	var g errgroup.Group
	g.SetLimit(h.hydrationConcurrency)
	for i, t := range types {
		g.Go(func() error {
			events, err := h.loadType(ctx, t)
			results[i] = hydrateResult{events: events, err: err}
			return nil
		})
	}
	_ = g.Wait()

	records, failed := 0, 0
	for i, t := range types {
		res := results[i]
		if res.err != nil {
			failed++
			h.stats.storageErrors.Add(1)
			h.report(fmt.Errorf("%w: %w", ErrHydrationIncomplete, res.err))
			continue
		}
		records += len(res.events)
		h.replacePending(ctx, t, res.events)
		if h.bus.HasObservers(t) {
			h.replay(ctx, t, 0)
		}
	}

	observability.LogHydrationComplete(h.logger, len(types), records, failed, done())
}

// replacePending installs loaded events for t. Events already pending keep
// their position; events that never reached storage are carried over so a
// reload cannot lose them, and durable events gone from storage are dropped.
// Loaded events not yet in memory go after the rest, in load order.
func (h *Handler) replacePending(ctx context.Context, t event.Type, loaded []*pendingEvent) {
	old := h.pending[t]

	stored := make(map[string]bool, len(loaded))
	for _, l := range loaded {
		stored[l.evt.ID()] = true
	}

	next := make([]*pendingEvent, 0, len(old)+len(loaded))
	known := make(map[string]bool, len(old))
	for _, p := range old {
		id := p.evt.ID()
		known[id] = true
		switch {
		case stored[id]:
			p.durable = true
			next = append(next, p)
		case !p.durable:
			next = append(next, p)
		}
	}
	for _, l := range loaded {
		if !known[l.evt.ID()] {
			next = append(next, l)
		}
	}

	if len(next) == 0 {
		delete(h.pending, t)
	} else {
		h.pending[t] = next
	}

	delta := int64(len(next) - len(old))
	h.stats.pending.Add(delta)
	h.metrics.RecordPending(ctx, string(t), delta)
}

// loadType runs on a hydration worker. It must not touch h.pending.
func (h *Handler) loadType(ctx context.Context, t event.Type) ([]*pendingEvent, error) {
	ctx, span := h.spans.StartHydrateSpan(ctx, string(t))
	start := time.Now()

	var records []storage.Record
	_, err := h.storageCall(ctx, "load", t, "", func(ctx context.Context) error {
		var loadErr error
		records, loadErr = h.store.Load(ctx, string(t))
		return loadErr
	})
	if err != nil {
		observability.LogHydrationError(h.logger, string(t), err)
		h.metrics.RecordHydration(ctx, string(t), 0, time.Since(start), err)
		h.spans.EndSpanWithError(span, err)
		return nil, err
	}

	events := make([]*pendingEvent, 0, len(records))
	for _, rec := range records {
		evt, decodeErr := h.registry.Decode(t, rec.Data)
		if decodeErr != nil {
			// Left in storage for inspection with relayctl.
			observability.LogDecodeError(h.logger, string(t), rec.ID, decodeErr)
			continue
		}
		events = append(events, &pendingEvent{evt: evt, durable: true})
	}

	h.metrics.RecordHydration(ctx, string(t), len(events), time.Since(start), nil)
	h.spans.EndSpanWithError(span, nil)
	return events, nil
}

// storageCall runs fn with the per-call timeout and the configured retry.
func (h *Handler) storageCall(ctx context.Context, op string, t event.Type, id string, fn func(context.Context) error) (int, error) {
	ctx, span := h.spans.StartStorageSpan(ctx, op, string(t))
	start := time.Now()

	attempts, err := relayerrors.Do(ctx, h.retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, h.storageTimeout)
		defer cancel()
		err := fn(callCtx)
		if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &relayerrors.TimeoutError{Operation: "storage " + op, Duration: h.storageTimeout.String(), Err: err}
		}
		return err
	})

	h.metrics.RecordStorageOp(ctx, op, string(t), time.Since(start), err)
	h.spans.EndSpanWithError(span, err)
	if err != nil {
		return attempts, &StorageError{Op: op, Type: t, ID: id, Err: err}
	}
	return attempts, nil
}

func (h *Handler) storageFailed(err error) {
	h.stats.storageErrors.Add(1)
	var se *StorageError
	if errors.As(err, &se) {
		observability.LogStorageError(h.logger, se.Op, string(se.Type), se.ID, se.Err)
	}
	h.report(err)
}

func (h *Handler) observerFailed(err *event.ObserverError) {
	h.stats.observerErrors.Add(1)
	observability.LogObserverError(h.logger, string(err.Event.Type()), err.Event.ID(), err.SubscriptionID, err)
	h.report(fmt.Errorf("%w: %w", ErrObserverFailed, err))
}

func (h *Handler) report(err error) {
	if h.onError != nil {
		h.onError(err)
	}
}
