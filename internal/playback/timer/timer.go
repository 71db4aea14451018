// Package timer drives the progress of a single active slide.
//
// A Timer advances in fixed steps of one hundredth of the slide duration,
// waits a short settle delay once full so the host can draw the complete
// indicator, and then reports completion exactly once. Every deferred
// callback carries the generation it was scheduled under; Cancel, Reset and
// Pause bump the generation so a callback already in flight is dropped.
package timer

import (
	"time"

	"github.com/louisbranch/stories/internal/playback/clock"
)

// Steps is the number of progress increments per slide.
const Steps = 100

// Status describes the lifecycle of a timer run.
type Status int

const (
	// StatusIdle means no run has started or the timer was reset.
	StatusIdle Status = iota
	// StatusRunning means progress is ticking.
	StatusRunning
	// StatusPaused means a running or settling run is frozen.
	StatusPaused
	// StatusSettling means progress is full and completion is pending.
	StatusSettling
	// StatusCompleted means onComplete has fired for the run.
	StatusCompleted
	// StatusCancelled means the run was cancelled before completing.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusSettling:
		return "settling"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Timer is a pausable, cancellable slide progress timer. It is not safe for
// concurrent use; all calls and callbacks happen on the clock's sequence.
type Timer struct {
	clock  clock.Clock
	settle time.Duration

	step   time.Duration
	steps  int
	status Status
	paused bool

	gen       uint64
	pending   clock.Timer
	armedAt   time.Time
	armedFor  time.Duration
	remaining time.Duration

	onTick     func(progress float64)
	onComplete func()
}

// New creates an idle timer. settle is the delay between full progress and
// completion; negative values are treated as zero.
func New(clk clock.Clock, settle time.Duration) *Timer {
	if settle < 0 {
		settle = 0
	}
	return &Timer{clock: clk, settle: settle}
}

// Start begins a fresh run from progress 0, abandoning any previous run.
// A non-positive duration completes on the next turn of the clock without
// ticking.
func (t *Timer) Start(duration time.Duration, onTick func(progress float64), onComplete func()) {
	t.stop()
	t.steps = 0
	t.paused = false
	t.onTick = onTick
	t.onComplete = onComplete

	if duration <= 0 {
		t.steps = Steps
		t.status = StatusSettling
		t.arm(0, t.complete)
		return
	}
	t.step = duration / Steps
	if t.step <= 0 {
		t.step = time.Nanosecond
	}
	t.status = StatusRunning
	t.arm(t.step, t.tick)
}

// Pause freezes progress. The unelapsed part of the current step is kept so
// Resume neither repeats nor skips time. Pausing while settling drops the
// pending completion.
func (t *Timer) Pause() {
	if t.paused || (t.status != StatusRunning && t.status != StatusSettling) {
		return
	}
	elapsed := t.clock.Now().Sub(t.armedAt)
	remaining := t.armedFor - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if remaining > t.armedFor {
		remaining = t.armedFor
	}
	t.stop()
	t.remaining = remaining
	t.paused = true
}

// Resume continues a paused run from its frozen progress. A run paused while
// settling waits the full settle delay again before completing.
func (t *Timer) Resume() {
	if !t.paused {
		return
	}
	t.paused = false
	switch t.status {
	case StatusRunning:
		t.arm(t.remaining, t.tick)
	case StatusSettling:
		t.arm(t.settle, t.complete)
	}
}

// Cancel stops the run and guarantees onComplete will not fire for it.
// Progress stays where it was. Cancel is idempotent.
func (t *Timer) Cancel() {
	t.stop()
	t.paused = false
	if t.status == StatusRunning || t.status == StatusSettling {
		t.status = StatusCancelled
	}
}

// Reset stops the run and sets progress back to 0.
func (t *Timer) Reset() {
	t.stop()
	t.paused = false
	t.steps = 0
	t.status = StatusIdle
}

// Progress returns the current progress in [0, 1].
func (t *Timer) Progress() float64 {
	return float64(t.steps) / Steps
}

// Status returns the lifecycle state of the current run.
func (t *Timer) Status() Status {
	if t.paused {
		return StatusPaused
	}
	return t.status
}

// Paused reports whether the run is frozen.
func (t *Timer) Paused() bool {
	return t.paused
}

func (t *Timer) tick() {
	t.steps++
	// Arm the next callback before notifying so a Pause from inside onTick
	// measures against the new step.
	if t.steps >= Steps {
		t.steps = Steps
		t.status = StatusSettling
		t.arm(t.settle, t.complete)
	} else {
		t.arm(t.step, t.tick)
	}
	if t.onTick != nil {
		t.onTick(t.Progress())
	}
}

func (t *Timer) complete() {
	if t.status != StatusSettling {
		return
	}
	t.status = StatusCompleted
	if t.onComplete != nil {
		t.onComplete()
	}
}

func (t *Timer) arm(d time.Duration, fn func()) {
	gen := t.gen
	t.armedAt = t.clock.Now()
	t.armedFor = d
	t.pending = t.clock.AfterFunc(d, func() {
		if gen != t.gen {
			return
		}
		t.pending = nil
		fn()
	})
}

func (t *Timer) stop() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
}
