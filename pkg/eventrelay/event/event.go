package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type is the stable discriminant of an event kind (e.g. "screen_viewed").
type Type string

// String returns the type key.
func (t Type) String() string {
	return string(t)
}

// Event is the core interface for all events carried by the relay.
// Events are immutable once created.
type Event interface {
	// ID is the unique identifier, also used as the storage id.
	ID() string

	// Type is the kind discriminant.
	Type() Type

	// Timestamp is when the event was created.
	Timestamp() time.Time

	// Data returns the kind-specific payload.
	Data() any
}

// Payload is implemented by every concrete event payload. All payloads of
// one Type share the same Go struct.
type Payload interface {
	EventType() Type
}

// Metadata contains the envelope fields common to every event.
type Metadata struct {
	EventID   string    `json:"id"`
	EventType Type      `json:"type"`
	CreatedAt time.Time `json:"timestamp"`
}

// BaseEvent is the generic event envelope.
// T is the payload type for type-safe access.
type BaseEvent[T Payload] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string {
	return e.Meta.EventID
}

// Type returns the event type.
func (e *BaseEvent[T]) Type() Type {
	return e.Meta.EventType
}

// Timestamp returns when the event was created.
func (e *BaseEvent[T]) Timestamp() time.Time {
	return e.Meta.CreatedAt
}

// Data returns the event payload.
func (e *BaseEvent[T]) Data() any {
	return e.Payload
}

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T {
	return e.Payload
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id        string
	timestamp time.Time
}

// WithID sets a specific event ID (default: random UUID).
func WithID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithTimestamp sets a specific creation time (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *eventConfig) {
		cfg.timestamp = t
	}
}

// New creates an event for the given payload. The type key is taken from
// the payload, so an event can never carry a mismatched discriminant.
func New[T Payload](payload T, opts ...Option) *BaseEvent[T] {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:   cfg.id,
			EventType: payload.EventType(),
			CreatedAt: cfg.timestamp,
		},
		Payload: payload,
	}
}

// Marshal encodes an event envelope as JSON.
func Marshal(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, &DecodeError{Type: evt.Type(), ID: evt.ID(), Op: "marshal", Err: err}
	}
	return data, nil
}

// decode is the per-kind decoder stored in the registry.
func decode[T Payload](data []byte) (Event, error) {
	var evt BaseEvent[T]
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}

	var zero T
	if evt.Meta.EventType != zero.EventType() {
		return nil, ErrPayloadMismatch
	}
	if evt.Meta.EventID == "" {
		return nil, ErrMissingID
	}
	return &evt, nil
}
