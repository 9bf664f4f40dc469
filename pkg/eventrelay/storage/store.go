// Package storage provides durable storage for pending (unobserved) events.
package storage

import (
	"context"
	"errors"
	"time"
)

// Store persists pending event records keyed by event type.
// Implementations must be safe for concurrent use and must honor ctx
// deadlines so a stalled medium cannot hang the caller.
type Store interface {
	// Load returns every record of eventType in insertion order.
	// Returns an empty slice (not error) if there are none.
	Load(ctx context.Context, eventType string) ([]Record, error)

	// Store appends a record. Storing an existing ID overwrites the data
	// but keeps the record's original position.
	Store(ctx context.Context, rec Record) error

	// Remove deletes a record by ID.
	// Returns nil if the record doesn't exist.
	Remove(ctx context.Context, id string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one serialized pending event.
type Record struct {
	ID        string    // event ID, unique across types
	Type      string    // event type key
	Seq       int64     // insertion order, assigned by the store
	CreatedAt time.Time // when the record was first stored
	Data      []byte    // serialized event envelope
}

// Sentinel errors for storage operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("event store closed")

	// ErrInvalidRecord indicates a record without an ID or type.
	ErrInvalidRecord = errors.New("record requires id and type")

	// ErrUnknownDriver indicates Open was given an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

func validate(rec Record) error {
	if rec.ID == "" || rec.Type == "" {
		return ErrInvalidRecord
	}
	return nil
}
