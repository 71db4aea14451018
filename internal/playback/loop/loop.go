// Package loop provides the single-writer event loop that owns playback state.
//
// Every controller mutation, timer tick and gesture is a task posted to one
// Loop and executed in order on the goroutine running Run. Controllers built
// on the loop's Clock therefore need no locks.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/louisbranch/stories/internal/playback/clock"
)

const defaultBuffer = 64

// ErrStopped reports that the loop no longer accepts tasks.
var ErrStopped = errors.New("event loop stopped")

// Loop executes posted tasks sequentially.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
	logf  func(string, ...any)
}

// New creates a loop with the given task buffer. Non-positive buffers use
// the default size. logf receives recovered task panics and may be nil.
func New(buffer int, logf func(string, ...any)) *Loop {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
		logf:  logf,
	}
}

// Run executes tasks until Stop is called or ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case task := <-l.tasks:
			l.execute(task)
		}
	}
}

// Stop makes the loop reject new tasks and ends Run. Queued tasks are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post enqueues fn. It reports false when the loop has stopped.
// Post must not be called from a task when the buffer may be full.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil && l.logf != nil {
			l.logf("event loop task panic: %v", r)
		}
	}()
	task()
}

// Clock returns a clock whose deferred callbacks run on this loop.
func (l *Loop) Clock() clock.Clock {
	return loopClock{loop: l}
}

type loopClock struct {
	loop *Loop
}

func (c loopClock) Now() time.Time {
	return time.Now()
}

func (c loopClock) AfterFunc(d time.Duration, fn func()) clock.Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		c.loop.Post(func() {
			if t.stopped {
				return
			}
			t.fired = true
			fn()
		})
	})
	return t
}

// loopTimer fields are only touched on the loop goroutine.
type loopTimer struct {
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}
