// Package clocktest provides a manually advanced clock for playback tests.
package clocktest

import (
	"sort"
	"time"

	"github.com/louisbranch/stories/internal/playback/clock"
)

// Epoch is the default start time for manual clocks.
var Epoch = time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

// Clock is a deterministic clock. Callbacks run on the goroutine that calls
// Advance, in due-time order, with ties broken by scheduling order.
type Clock struct {
	now     time.Time
	seq     uint64
	pending []*timer
}

type timer struct {
	clock   *Clock
	due     time.Time
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

// New returns a manual clock starting at Epoch.
func New() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current manual time.
func (c *Clock) Now() time.Time {
	return c.now
}

// AfterFunc schedules fn to run once Advance reaches now+d.
func (c *Clock) AfterFunc(d time.Duration, fn func()) clock.Timer {
	if d < 0 {
		d = 0
	}
	c.seq++
	t := &timer{clock: c, due: c.now.Add(d), seq: c.seq, fn: fn}
	c.pending = append(c.pending, t)
	return t
}

// Stop cancels the timer if it has not fired.
func (t *timer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.clock.remove(t)
	return true
}

// Advance moves time forward by d, running every callback that becomes due.
// Callbacks scheduled while advancing run too when they fall inside the window.
func (c *Clock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		c.remove(next)
		if next.due.After(c.now) {
			c.now = next.due
		}
		next.fired = true
		next.fn()
	}
	c.now = target
}

// Pending reports how many callbacks are scheduled and not yet run.
func (c *Clock) Pending() int {
	return len(c.pending)
}

func (c *Clock) nextDue(limit time.Time) *timer {
	if len(c.pending) == 0 {
		return nil
	}
	sort.SliceStable(c.pending, func(i, j int) bool {
		if c.pending[i].due.Equal(c.pending[j].due) {
			return c.pending[i].seq < c.pending[j].seq
		}
		return c.pending[i].due.Before(c.pending[j].due)
	})
	if c.pending[0].due.After(limit) {
		return nil
	}
	return c.pending[0]
}

func (c *Clock) remove(t *timer) {
	for i, candidate := range c.pending {
		if candidate == t {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

var _ clock.Clock = (*Clock)(nil)
