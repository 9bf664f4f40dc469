// Package event defines the relay's event model and its synchronous bus.
//
// # Events
//
// Every event is a BaseEvent[T] envelope around a payload struct. The
// payload fixes the type key, so events of one kind always share a shape:
//
//	evt := event.New(event.ScreenViewed{Name: "Login"})
//	// evt.Type() == event.TypeScreenViewed
//
// # Registry
//
// Registry is the closed catalog of kinds. It decodes stored envelopes back
// into typed events and enumerates every kind for startup hydration:
//
//	registry := event.Builtin()
//	for _, t := range registry.AllTypes() {
//	    // load pending events of type t
//	}
//
// Custom kinds are added with Register:
//
//	event.MustRegister[CartUpdated](registry, "cart contents changed")
//
// # Bus
//
// LocalBus delivers synchronously, in registration order, and reports
// whether anybody was listening. Observer errors and panics are isolated
// and handed to BusConfig.OnError:
//
//	bus := event.NewBus(event.BusConfig{OnError: report})
//	sub := bus.Subscribe(event.TypeScreenViewed, event.ObserverFunc(fn))
//	defer bus.Unsubscribe(sub)
//
//	if !bus.Post(ctx, evt) {
//	    // nobody listening
//	}
package event
