package gesture

import (
	"time"

	"github.com/louisbranch/stories/internal/playback/clock"
	"github.com/louisbranch/stories/internal/playback/story"
)

// Classifier turns raw press and release events into gestures.
//
// A press that lasts the hold threshold emits HoldStart when the threshold
// elapses and HoldEnd on release. A shorter press emits a tap classified by
// where the press began; a press on a surface without a positive width is
// not a tap. Only one press is tracked at a time; extra pointers
// are ignored until the first one lifts.
type Classifier struct {
	clock       clock.Clock
	threshold   time.Duration
	split       float64
	holdEnabled bool
	emit        func(Gesture)

	pressing  bool
	holding   bool
	pressedAt time.Time
	pressX    float64
	width     float64
	holdTimer clock.Timer
	gen       uint64
}

// NewClassifier builds a classifier from the session configuration. emit
// receives every classified gesture on the clock's sequence.
func NewClassifier(clk clock.Clock, cfg story.Config, emit func(Gesture)) *Classifier {
	cfg = cfg.Normalized()
	return &Classifier{
		clock:       clk,
		threshold:   cfg.HoldThreshold,
		split:       cfg.TapZoneSplit,
		holdEnabled: !cfg.DisableHoldToPause,
		emit:        emit,
	}
}

// Down records the start of a press at x on a surface of the given width.
func (c *Classifier) Down(x, width float64) {
	if c.pressing {
		return
	}
	c.pressing = true
	c.holding = false
	c.pressedAt = c.clock.Now()
	c.pressX = x
	c.width = width
	c.gen++
	gen := c.gen
	c.holdTimer = c.clock.AfterFunc(c.threshold, func() {
		if gen != c.gen || !c.pressing {
			return
		}
		c.holdTimer = nil
		c.holding = true
		if c.holdEnabled {
			c.send(HoldStart)
		}
	})
}

// Up ends the current press and emits the resulting gesture, if any.
func (c *Classifier) Up() {
	if !c.pressing {
		return
	}
	c.pressing = false
	c.stopHoldTimer()
	if c.holding {
		c.holding = false
		if c.holdEnabled {
			c.send(HoldEnd)
		}
		return
	}
	if c.clock.Now().Sub(c.pressedAt) < c.threshold {
		if g := Zone(c.pressX, c.width, c.split); g != None {
			c.send(g)
		}
	}
}

// Cancel abandons the current press without emitting a tap. An active hold
// is released so playback never stays paused.
func (c *Classifier) Cancel() {
	if !c.pressing {
		return
	}
	c.pressing = false
	c.stopHoldTimer()
	if c.holding {
		c.holding = false
		if c.holdEnabled {
			c.send(HoldEnd)
		}
	}
}

// Pressing reports whether a press is in progress.
func (c *Classifier) Pressing() bool {
	return c.pressing
}

func (c *Classifier) stopHoldTimer() {
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
	c.gen++
}

func (c *Classifier) send(g Gesture) {
	if c.emit != nil {
		c.emit(g)
	}
}
