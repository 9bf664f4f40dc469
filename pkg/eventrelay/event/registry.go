package event

import (
	"fmt"
	"reflect"
	"sync"
)

// Schema describes a registered event kind.
type Schema struct {
	// Type is the stable type key.
	Type Type

	// Description explains the event's purpose.
	Description string

	// PayloadType is the Go type of the payload, used for validation.
	PayloadType reflect.Type

	decode func([]byte) (Event, error)
}

// Decode rebuilds an event of this kind from its JSON envelope.
func (s *Schema) Decode(data []byte) (Event, error) {
	evt, err := s.decode(data)
	if err != nil {
		return nil, &DecodeError{Type: s.Type, Op: "decode", Err: err}
	}
	return evt, nil
}

// Registry is the closed catalog of event kinds. The same table drives
// decoding and AllTypes, so every decodable kind is also enumerated.
type Registry struct {
	mu      sync.RWMutex
	schemas map[Type]*Schema
	order   []Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[Type]*Schema),
	}
}

// Builtin returns a new registry holding every built-in kind.
func Builtin() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// Register adds payload kind T to the registry.
// The type key comes from the zero value of T.
func Register[T Payload](r *Registry, description string) error {
	var zero T
	t := zero.EventType()
	if t == "" {
		return fmt.Errorf("event type is required for %T", zero)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t)
	}

	r.schemas[t] = &Schema{
		Type:        t,
		Description: description,
		PayloadType: reflect.TypeOf(zero),
		decode:      decode[T],
	}
	r.order = append(r.order, t)
	return nil
}

// MustRegister is Register that panics on error.
func MustRegister[T Payload](r *Registry, description string) {
	if err := Register[T](r, description); err != nil {
		panic(fmt.Sprintf("failed to register event kind: %v", err))
	}
}

// AllTypes returns every registered type key in registration order.
func (r *Registry) AllTypes() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, len(r.order))
	copy(types, r.order)
	return types
}

// Get returns the schema for a type key.
func (r *Registry) Get(t Type) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema, ok := r.schemas[t]
	return schema, ok
}

// Has returns true if the type key is registered.
func (r *Registry) Has(t Type) bool {
	_, ok := r.Get(t)
	return ok
}

// Decode rebuilds an event of type t from its JSON envelope.
func (r *Registry) Decode(t Type, data []byte) (Event, error) {
	schema, ok := r.Get(t)
	if !ok {
		return nil, &DecodeError{Type: t, Op: "decode", Err: ErrUnknownType}
	}
	return schema.Decode(data)
}

// Validate checks that an event's type is registered and that its payload
// has the registered Go type.
func (r *Registry) Validate(evt Event) error {
	schema, ok := r.Get(evt.Type())
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, evt.Type())
	}
	if got := reflect.TypeOf(evt.Data()); got != schema.PayloadType {
		return fmt.Errorf("%w: %s carries %v, want %v", ErrPayloadMismatch, evt.Type(), got, schema.PayloadType)
	}
	return nil
}
