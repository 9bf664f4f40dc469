package eventrelay

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/eventrelay/pkg/eventrelay/event"
)

// Sentinel errors reported through WithOnError and the logger.
// None of them are ever returned from Post.
var (
	// ErrStorageUnavailable indicates the durable store failed a call.
	// The affected event stays in memory.
	ErrStorageUnavailable = errors.New("event storage unavailable")

	// ErrObserverFailed indicates an observer returned an error or panicked.
	ErrObserverFailed = errors.New("observer failed")

	// ErrHydrationIncomplete indicates a type could not be loaded at startup.
	// That type starts with an empty pending set.
	ErrHydrationIncomplete = errors.New("hydration incomplete")
)

// Sentinel errors returned by the blocking Handler methods.
var (
	// ErrReentrantSync indicates Sync or Close was called with an observer's
	// context, which would wait on the task currently running.
	ErrReentrantSync = errors.New("sync called from inside an observer")

	// ErrClosed indicates the handler no longer accepts work.
	ErrClosed = errors.New("handler closed")
)

// StorageError wraps a backend failure with the operation that hit it.
// It matches both ErrStorageUnavailable and the underlying cause.
type StorageError struct {
	// Op is the storage operation ("load", "store", "remove", "close").
	Op string
	// Type is the event type involved, if any.
	Type event.Type
	// ID is the event ID involved, if any.
	ID string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	switch {
	case e.ID != "":
		return fmt.Sprintf("storage %s %s event %s: %v", e.Op, e.Type, e.ID, e.Err)
	case e.Type != "":
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Type, e.Err)
	default:
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
}

// Unwrap exposes ErrStorageUnavailable and the cause to errors.Is/As.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}
