// Package indicator derives the per-slide progress indicators of one user's
// slide sequence and owns the single live timer behind the active one.
package indicator

import (
	"time"

	"github.com/louisbranch/stories/internal/playback/clock"
	"github.com/louisbranch/stories/internal/playback/timer"
)

// State is the visual state of one indicator.
type State int

const (
	// StatePending marks a slide after the active one; progress is 0.
	StatePending State = iota
	// StateActive marks the slide driven by the live timer.
	StateActive
	// StateSeen marks a slide before the active one; progress is always 1.
	StateSeen
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateSeen:
		return "seen"
	default:
		return "unknown"
	}
}

// Indicator is the rendered state of one slide's progress bar.
type Indicator struct {
	Index    int
	State    State
	Progress float64
}

// Config describes a slide sequence and where timer events go.
type Config struct {
	// Durations holds the effective duration of every slide.
	Durations   []time.Duration
	SettleDelay time.Duration
	// Hidden suppresses indicators entirely. Routing is unaffected.
	Hidden bool
	// HideWhilePaused hides indicators while playback is paused.
	HideWhilePaused bool

	OnProgress func(index int, progress float64)
	OnComplete func(index int)
}

// Set tracks the active slide and its timer. Activating a slide tears the
// previous timer down and builds a new one, so progress never carries over.
type Set struct {
	clock  clock.Clock
	cfg    Config
	active int
	paused bool
	closed bool

	timer    *timer.Timer
	progress float64
}

// New returns a set with no live timer. Call Activate to start one.
func New(clk clock.Clock, cfg Config) *Set {
	return &Set{clock: clk, cfg: cfg}
}

// Count returns the number of indicators.
func (s *Set) Count() int {
	return len(s.cfg.Durations)
}

// Active returns the active slide index.
func (s *Set) Active() int {
	return s.active
}

// Activate makes index the active slide and starts its timer from 0. The
// index is clamped to the sequence. The new timer starts frozen when the set
// is paused.
func (s *Set) Activate(index int) {
	if s.closed || s.Count() == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= s.Count() {
		index = s.Count() - 1
	}
	s.dispose()
	s.active = index
	s.progress = 0

	t := timer.New(s.clock, s.cfg.SettleDelay)
	s.timer = t
	t.Start(s.cfg.Durations[index], func(progress float64) {
		if s.timer != t {
			return
		}
		s.progress = progress
		if s.cfg.OnProgress != nil {
			s.cfg.OnProgress(index, progress)
		}
	}, func() {
		if s.timer != t {
			return
		}
		if s.cfg.OnComplete != nil {
			s.cfg.OnComplete(index)
		}
	})
	if s.paused {
		t.Pause()
	}
}

// SetPaused freezes or resumes the live timer.
func (s *Set) SetPaused(paused bool) {
	if s.paused == paused {
		return
	}
	s.paused = paused
	if s.timer == nil {
		return
	}
	if paused {
		s.timer.Pause()
	} else {
		s.timer.Resume()
	}
}

// Paused reports whether the set is paused.
func (s *Set) Paused() bool {
	return s.paused
}

// Progress returns the active slide's progress.
func (s *Set) Progress() float64 {
	return s.progress
}

// Indicators returns the state of every indicator in slide order.
func (s *Set) Indicators() []Indicator {
	out := make([]Indicator, s.Count())
	for i := range out {
		out[i].Index = i
		switch {
		case i < s.active:
			out[i].State = StateSeen
			out[i].Progress = 1
		case i == s.active:
			out[i].State = StateActive
			out[i].Progress = s.progress
		default:
			out[i].State = StatePending
		}
	}
	return out
}

// Visible reports whether the host should draw the indicators.
func (s *Set) Visible() bool {
	if s.cfg.Hidden {
		return false
	}
	return !(s.cfg.HideWhilePaused && s.paused)
}

// Close tears down the live timer. The last progress stays readable.
func (s *Set) Close() {
	s.dispose()
	s.closed = true
}

func (s *Set) dispose() {
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
}
