// Package loop runs the model's work on a single owner goroutine.
//
// Every model mutation and every notification happens inside a task run by a
// Scheduler. Other goroutines (directory listing, previews, counting) hand
// their results back with Post.
package loop

import (
	"context"
	"sync"
	"time"
)

// Scheduler queues tasks for the owner goroutine and creates timers whose
// callbacks also run there.
type Scheduler interface {
	// Post queues fn. Safe for concurrent use.
	Post(fn func())
	// NewTimer returns a stopped single-shot timer.
	NewTimer(interval time.Duration, fn func()) *Timer
	Now() time.Time
}

// Loop is the real Scheduler. Tasks queue without bound so a task may post
// follow-up work without blocking.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) NewTimer(interval time.Duration, fn func()) *Timer {
	return &Timer{host: l, interval: interval, fn: fn}
}

// Ready is signalled whenever tasks are queued. Pumps that do not call Run
// (a bubbletea program for instance) wait on it and then call RunPending.
func (l *Loop) Ready() <-chan struct{} { return l.wake }

// RunPending runs the tasks queued so far and returns how many ran. Tasks
// they post are left for the next call.
func (l *Loop) RunPending() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Run executes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		// Drain first so a cancelled context still lets queued work finish
		// in order up to this point.
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Call runs fn on the loop and waits for it.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) arm(t *Timer, gen uint64, d time.Duration) func() {
	rt := time.AfterFunc(d, func() {
		l.Post(func() { t.fire(gen) })
	})
	return func() { rt.Stop() }
}
