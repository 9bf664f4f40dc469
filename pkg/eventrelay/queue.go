package eventrelay

import (
	"context"
	"sync"
)

// task is one unit of handler work. It runs on the queue goroutine.
type task func(ctx context.Context)

// taskQueue is an unbounded FIFO with a single consumer.
// submit never blocks, so observers running on the consumer may submit
// more work without deadlocking.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []task
	closed bool

	wake chan struct{} // capacity 1
	done chan struct{} // closed when the consumer exits
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// submit appends t. It returns false once the queue is closed.
func (q *taskQueue) submit(t task) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()

	q.notify()
	return true
}

// close stops accepting tasks. Already queued tasks still run.
func (q *taskQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.notify()
}

func (q *taskQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// len returns the number of tasks waiting to run.
func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// run executes tasks in submission order until the queue is closed and empty.
func (q *taskQueue) run(ctx context.Context) {
	defer close(q.done)

	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		next := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		next(ctx)
	}
}
