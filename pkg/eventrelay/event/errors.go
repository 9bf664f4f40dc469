package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registry and codec.
var (
	// ErrUnknownType indicates a type key that is not in the registry.
	ErrUnknownType = errors.New("unknown event type")

	// ErrDuplicateType indicates a type key registered twice.
	ErrDuplicateType = errors.New("event type already registered")

	// ErrPayloadMismatch indicates an envelope whose payload does not match its type key.
	ErrPayloadMismatch = errors.New("payload does not match event type")

	// ErrMissingID indicates an envelope without an event ID.
	ErrMissingID = errors.New("event id missing")
)

// DecodeError wraps failures to encode or decode an event envelope.
type DecodeError struct {
	Type Type
	ID   string
	Op   string // "marshal" or "decode"
	Err  error
}

// Error implements error.
func (e *DecodeError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s event %s (%s): %v", e.Op, e.ID, e.Type, e.Err)
	}
	return fmt.Sprintf("%s event (%s): %v", e.Op, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ObserverError reports an observer that failed while receiving an event.
type ObserverError struct {
	Event          Event  // The event being delivered
	SubscriptionID uint64 // Observer that failed
	Err            error  // Returned error, or a synthesized one for panics
	Panic          any    // Recovered panic value, if any
}

// Error implements error.
func (e *ObserverError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("observer %d panicked on %s event %s: %v",
			e.SubscriptionID, e.Event.Type(), e.Event.ID(), e.Panic)
	}
	return fmt.Sprintf("observer %d failed on %s event %s: %v",
		e.SubscriptionID, e.Event.Type(), e.Event.ID(), e.Err)
}

// Unwrap returns the underlying error.
func (e *ObserverError) Unwrap() error {
	return e.Err
}
