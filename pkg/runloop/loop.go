package runloop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Common loop errors.
var (
	ErrAlreadyRunning = errors.New("loop already running")
	ErrStopped        = errors.New("loop stopped")
)

// Loop is a serial task executor. Tasks posted from any goroutine are
// executed one at a time, in posting order, on the goroutine that calls
// Run (or RunUntilIdle). It stands in for the host application's UI
// thread: everything that must happen with UI affinity is posted here.
//
// The queue is unbounded. Posters never block, and no task is ever
// dropped while the loop is live; shedding a task would break the
// ordering contract observers rely on.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	running bool
	stopped bool
}

// New creates a new loop. The loop executes nothing until Run or
// RunUntilIdle is called.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues task for execution on the loop goroutine.
// Safe to call from any goroutine. Returns false if the loop has
// stopped, in which case the task is discarded.
func (l *Loop) Post(task func()) bool {
	if task == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// PostDelayed enqueues task after the given delay has elapsed.
// Ordering is relative to other posts made at fire time, not at call
// time. The returned timer can be used to cancel the post.
func (l *Loop) PostDelayed(delay time.Duration, task func()) *time.Timer {
	return time.AfterFunc(delay, func() {
		l.Post(task)
	})
}

// Run executes posted tasks on the calling goroutine until ctx is
// canceled. After Run returns the loop is stopped and further posts are
// discarded. Returns ErrAlreadyRunning if called concurrently.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		l.drain()

		select {
		case <-ctx.Done():
			// Execute what was queued before cancellation so the
			// final observable state is consistent.
			l.drain()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunUntilIdle executes all currently queued tasks on the calling
// goroutine and returns the number executed. Tasks posted while
// draining are executed too. Intended for embedders that pump the loop
// from their own outer loop, and for tests.
func (l *Loop) RunUntilIdle() int {
	return l.drain()
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// drain executes queued tasks one at a time until the queue is empty.
func (l *Loop) drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		task()
		n++
	}
}
