package eventrelay

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
	"github.com/randalmurphal/eventrelay/pkg/eventrelay/storage"
)

// recorder is an observer that remembers what it received.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (r *recorder) Observe(_ context.Context, evt event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *recorder) received() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// errorSink collects errors passed to WithOnError.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

// orderLog records "<observer>:<event id>" across several observers.
type orderLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *orderLog) observer(name string) event.Observer {
	return event.ObserverFunc(func(_ context.Context, evt event.Event) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.entries = append(l.entries, name+":"+evt.ID())
		return nil
	})
}

func (l *orderLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestHandler builds a handler and waits for hydration to finish.
func newTestHandler(t *testing.T, store storage.Store, opts ...Option) *Handler {
	t.Helper()
	h := New(store, append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(func() {
		_ = h.Close(context.Background())
	})
	settle(t, h)
	return h
}

// settle waits for every queued task, including tasks queued by
// observers during the first pass.
func settle(t *testing.T, h *Handler) {
	t.Helper()
	require.NoError(t, h.Sync(context.Background()))
	require.NoError(t, h.Sync(context.Background()))
}

func pending(t *testing.T, h *Handler, typ event.Type) []event.Event {
	t.Helper()
	events, err := h.Pending(context.Background(), typ)
	require.NoError(t, err)
	return events
}

func screen(name string) *event.BaseEvent[event.ScreenViewed] {
	return event.New(event.ScreenViewed{Name: name})
}

func screenNames(events []event.Event) []string {
	names := make([]string, 0, len(events))
	for _, evt := range events {
		names = append(names, evt.Data().(event.ScreenViewed).Name)
	}
	return names
}

func eventIDs(events []event.Event) []string {
	ids := make([]string, 0, len(events))
	for _, evt := range events {
		ids = append(ids, evt.ID())
	}
	return ids
}

// storedRecord encodes evt the way the handler persists it.
func storedRecord(t *testing.T, evt event.Event) storage.Record {
	t.Helper()
	data, err := event.Marshal(evt)
	require.NoError(t, err)
	return storage.Record{
		ID:        evt.ID(),
		Type:      string(evt.Type()),
		CreatedAt: evt.Timestamp(),
		Data:      data,
	}
}
