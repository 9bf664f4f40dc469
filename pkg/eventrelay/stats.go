package eventrelay

import "sync/atomic"

// Stats is a point-in-time view of handler activity.
type Stats struct {
	Posted         int64 // Events processed by Post
	Delivered      int64 // Posts received by at least one observer
	Persisted      int64 // Unobserved events acknowledged by storage
	Replayed       int64 // Pending events delivered to a new observer
	Pending        int64 // Events currently held for replay
	StorageErrors  int64 // Failed storage calls and hydration loads
	ObserverErrors int64 // Observer errors and panics
	Queued         int   // Tasks waiting to run
}

type counters struct {
	posted         atomic.Int64
	delivered      atomic.Int64
	persisted      atomic.Int64
	replayed       atomic.Int64
	pending        atomic.Int64
	storageErrors  atomic.Int64
	observerErrors atomic.Int64
}

func (c *counters) snapshot(queued int) Stats {
	return Stats{
		Posted:         c.posted.Load(),
		Delivered:      c.delivered.Load(),
		Persisted:      c.persisted.Load(),
		Replayed:       c.replayed.Load(),
		Pending:        c.pending.Load(),
		StorageErrors:  c.storageErrors.Load(),
		ObserverErrors: c.observerErrors.Load(),
		Queued:         queued,
	}
}
