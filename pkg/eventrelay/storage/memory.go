package storage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is an in-memory event store for testing and for running
// without a durable medium. Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record // id -> record
	nextSeq int64
	closed  bool

	// Call counters, for tests asserting persistence behavior.
	loadCalls   atomic.Int64
	storeCalls  atomic.Int64
	removeCalls atomic.Int64

	// Injected failures, for tests exercising degraded storage.
	failMu    sync.RWMutex
	failLoad  map[string]error
	failStore error
	failRem   error
}

// NewMemoryStore creates a new in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		failLoad: make(map[string]error),
	}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, eventType string) ([]Record, error) {
	m.loadCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.injected(func() error { return m.failLoad[eventType] }); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	recs := make([]Record, 0)
	for _, rec := range m.records {
		if rec.Type == eventType {
			recs = append(recs, copyRecord(rec))
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Seq < recs[j].Seq
	})
	return recs, nil
}

// Store implements Store.
func (m *MemoryStore) Store(ctx context.Context, rec Record) error {
	m.storeCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(rec); err != nil {
		return err
	}
	if err := m.injected(func() error { return m.failStore }); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored := copyRecord(rec)
	if existing, ok := m.records[rec.ID]; ok {
		stored.Seq = existing.Seq
		stored.CreatedAt = existing.CreatedAt
	} else {
		m.nextSeq++
		stored.Seq = m.nextSeq
		stored.CreatedAt = time.Now().UTC()
	}

	m.records[rec.ID] = stored
	return nil
}

// Remove implements Store.
func (m *MemoryStore) Remove(ctx context.Context, id string) error {
	m.removeCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.injected(func() error { return m.failRem }); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.records, id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}

// Len returns the total number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Contains reports whether a record with the given ID is stored.
func (m *MemoryStore) Contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok
}

// LoadCalls returns how many times Load was called.
func (m *MemoryStore) LoadCalls() int { return int(m.loadCalls.Load()) }

// StoreCalls returns how many times Store was called.
func (m *MemoryStore) StoreCalls() int { return int(m.storeCalls.Load()) }

// RemoveCalls returns how many times Remove was called.
func (m *MemoryStore) RemoveCalls() int { return int(m.removeCalls.Load()) }

// FailLoad makes Load for eventType return err. A nil err clears it.
func (m *MemoryStore) FailLoad(eventType string, err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if err == nil {
		delete(m.failLoad, eventType)
		return
	}
	m.failLoad[eventType] = err
}

// FailStore makes every Store return err. A nil err clears it.
func (m *MemoryStore) FailStore(err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failStore = err
}

// FailRemove makes every Remove return err. A nil err clears it.
func (m *MemoryStore) FailRemove(err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failRem = err
}

func (m *MemoryStore) injected(get func() error) error {
	m.failMu.RLock()
	defer m.failMu.RUnlock()
	return get()
}

func copyRecord(rec Record) Record {
	data := make([]byte, len(rec.Data))
	copy(data, rec.Data)
	rec.Data = data
	return rec
}
