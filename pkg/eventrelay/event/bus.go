package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Observer receives events of the type it was registered for.
type Observer interface {
	Observe(ctx context.Context, evt Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, evt Event) error

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Subscription identifies one registered observer.
type Subscription struct {
	ID   uint64
	Type Type
}

// IsZero reports whether the handle was never issued.
func (s Subscription) IsZero() bool {
	return s.ID == 0
}

// Bus is the synchronous fan-out primitive. It knows nothing about
// durability; replay is layered on top by the relay handler.
type Bus interface {
	// Post delivers evt to every current observer of its type, in
	// registration order. It reports whether any observer received it.
	Post(ctx context.Context, evt Event) bool

	// Subscribe registers an observer for future posts of type t.
	Subscribe(t Type, obs Observer) Subscription

	// Reserve issues a handle without registering anything.
	Reserve(t Type) Subscription

	// Attach registers obs under a handle from Reserve.
	Attach(sub Subscription, obs Observer)

	// Unsubscribe removes one observer. No-op if it is not registered.
	Unsubscribe(sub Subscription)

	// UnsubscribeType removes every observer of type t.
	UnsubscribeType(t Type)

	// HasObservers reports whether type t has at least one observer.
	HasObservers(t Type) bool
}

// BusConfig configures bus behavior.
type BusConfig struct {
	// OnError is called when an observer returns an error or panics.
	// Delivery to the remaining observers continues regardless.
	OnError func(err *ObserverError)
}

// LocalBus is the in-process Bus implementation.
type LocalBus struct {
	config BusConfig

	mu     sync.RWMutex
	byType map[Type][]*observerEntry // registration order

	nextID atomic.Uint64
}

type observerEntry struct {
	sub      Subscription
	observer Observer
	active   atomic.Bool
}

// Compile-time interface check.
var _ Bus = (*LocalBus)(nil)

// NewBus creates a new local bus.
func NewBus(config BusConfig) *LocalBus {
	return &LocalBus{
		config: config,
		byType: make(map[Type][]*observerEntry),
	}
}

// Post implements Bus.
func (b *LocalBus) Post(ctx context.Context, evt Event) bool {
	// Deliver from a snapshot so observers may (un)subscribe re-entrantly.
	b.mu.RLock()
	entries := make([]*observerEntry, len(b.byType[evt.Type()]))
	copy(entries, b.byType[evt.Type()])
	b.mu.RUnlock()

	delivered := false
	for _, entry := range entries {
		if !entry.active.Load() {
			continue
		}
		delivered = true

		if err := b.deliver(ctx, entry, evt); err != nil && b.config.OnError != nil {
			b.config.OnError(err)
		}
	}
	return delivered
}

// deliver invokes one observer, converting panics into errors.
func (b *LocalBus) deliver(ctx context.Context, entry *observerEntry, evt Event) (obsErr *ObserverError) {
	defer func() {
		if r := recover(); r != nil {
			obsErr = &ObserverError{
				Event:          evt,
				SubscriptionID: entry.sub.ID,
				Err:            fmt.Errorf("observer panic: %v", r),
				Panic:          r,
			}
		}
	}()

	if err := entry.observer.Observe(ctx, evt); err != nil {
		return &ObserverError{
			Event:          evt,
			SubscriptionID: entry.sub.ID,
			Err:            err,
		}
	}
	return nil
}

// Subscribe implements Bus.
func (b *LocalBus) Subscribe(t Type, obs Observer) Subscription {
	sub := b.Reserve(t)
	b.Attach(sub, obs)
	return sub
}

// Reserve implements Bus.
func (b *LocalBus) Reserve(t Type) Subscription {
	return Subscription{ID: b.nextID.Add(1), Type: t}
}

// Attach implements Bus.
func (b *LocalBus) Attach(sub Subscription, obs Observer) {
	if sub.IsZero() || obs == nil {
		return
	}

	entry := &observerEntry{sub: sub, observer: obs}
	entry.active.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.byType[sub.Type] {
		if existing.sub.ID == sub.ID {
			return
		}
	}
	b.byType[sub.Type] = append(b.byType[sub.Type], entry)
}

// Unsubscribe implements Bus.
func (b *LocalBus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.byType[sub.Type]
	for i, entry := range entries {
		if entry.sub.ID != sub.ID {
			continue
		}
		entry.active.Store(false)

		// Copy rather than shift in place: in-flight snapshots share the backing array.
		remaining := make([]*observerEntry, 0, len(entries)-1)
		remaining = append(remaining, entries[:i]...)
		remaining = append(remaining, entries[i+1:]...)
		if len(remaining) == 0 {
			delete(b.byType, sub.Type)
		} else {
			b.byType[sub.Type] = remaining
		}
		return
	}
}

// UnsubscribeType implements Bus.
func (b *LocalBus) UnsubscribeType(t Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, entry := range b.byType[t] {
		entry.active.Store(false)
	}
	delete(b.byType, t)
}

// HasObservers implements Bus.
func (b *LocalBus) HasObservers(t Type) bool {
	return b.ObserverCount(t) > 0
}

// ObserverCount returns the number of observers registered for type t.
func (b *LocalBus) ObserverCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byType[t])
}
