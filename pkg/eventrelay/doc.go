/*
Package eventrelay provides an in-process event bus with durable replay.

# Overview

Events posted while an observer for their type is registered are delivered
synchronously. Events posted while nobody is listening are kept in memory
and written to a durable store; when an observer for that type registers,
they are replayed to it in the order they were posted and then removed.

Events are never silently lost to a missing observer, and a storage outage
degrades durability without blocking producers.

# Basic Usage

	store, err := storage.NewSQLiteStore("pending.db")
	if err != nil {
	    log.Fatal(err)
	}

	relay := eventrelay.New(store, eventrelay.WithOwnedStore())
	defer relay.Close(context.Background())

	// No observer yet: persisted.
	relay.Post(event.New(event.ScreenViewed{Name: "Login"}))

	// Replays "Login", then receives live events.
	relay.AddObserver(event.TypeScreenViewed, event.ObserverFunc(
	    func(ctx context.Context, evt event.Event) error {
	        fmt.Println(evt.Data().(event.ScreenViewed).Name)
	        return nil
	    }))

# Execution Model

Every operation is a task on one FIFO queue drained by a single goroutine.
Post, AddObserver, RemoveObserver, RemoveObservers, and Reload only enqueue,
so they return immediately and may be called from inside observers. Sync
waits for everything submitted before it:

	relay.Post(evt)
	if err := relay.Sync(ctx); err != nil {
	    return err
	}
	// evt has been delivered or persisted

Observers run on the queue goroutine. A slow observer delays every later
task, and an observer must not call Sync or Close with the context it was
given (those return ErrReentrantSync).

# Startup

New queues hydration as its first task: pending records for every type in
the registry are loaded in parallel (WithHydrationConcurrency), each with
its own timeout (WithStorageTimeout). A type that fails to load starts
empty and is reported as ErrHydrationIncomplete; its records stay in
storage for the next Reload or restart.

# Failure Handling

Nothing is returned to producers. Storage failures (ErrStorageUnavailable),
observer failures (ErrObserverFailed), and hydration failures are logged
through the configured slog.Logger and passed to WithOnError.

A record is removed from storage only after replay delivered it. If the
removal fails, the record may be replayed again after a restart.

# Observability

	relay := eventrelay.New(store,
	    eventrelay.WithLogger(logger),
	    eventrelay.WithMetrics(observability.NewMetricsRecorder()),
	    eventrelay.WithSpans(observability.NewSpanManager()),
	)

Spans cover posts, replays, per-type hydration, and individual storage
calls. Metrics count posts, replays, storage calls and errors, and track
the pending gauge per type.
*/
package eventrelay
