// Package slide implements the per-user playback state machine.
//
// A Controller walks one author's slides: it starts playing (or frozen, when
// the author is not in the spotlight), pauses for holds, routes taps to the
// previous or next slide, advances when the active timer completes and
// reports exhaustion once the last slide is done. Exhausted is terminal; the
// session builds a new Controller for every author it shows.
package slide

import (
	"time"

	"github.com/louisbranch/stories/internal/playback/clock"
	"github.com/louisbranch/stories/internal/playback/gesture"
	"github.com/louisbranch/stories/internal/playback/indicator"
	"github.com/louisbranch/stories/internal/playback/story"
)

// Status is the controller state.
type Status int

const (
	// StatusIdle is the state before Start.
	StatusIdle Status = iota
	// StatusPlaying means the active slide's timer is ticking.
	StatusPlaying
	// StatusPaused means the active slide is frozen by a hold or by being
	// out of the spotlight.
	StatusPaused
	// StatusExhausted means the last slide finished; the controller is done.
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// State is the externally visible playback position.
type State struct {
	ActiveIndex int
	Paused      bool
	// SeenUpTo is the highest slide index reached while this author was active.
	SeenUpTo int
}

// Events are read-only notifications. Handlers may call back into the
// controller only through its public methods.
type Events struct {
	OnSlideChanged        func(index int)
	OnUserComplete        func()
	OnRequestPreviousUser func()
	OnProgress            func(index int, progress float64)
}

// Options configures a Controller.
type Options struct {
	Clock  clock.Clock
	Config story.Config
	Slides []story.Slide
	// InitialIndex is clamped to the slide range.
	InitialIndex int
	// Spotlight is true when this author is the one on screen.
	Spotlight bool
	// OverlaySettled gates taps and holds while an enclosing sheet or
	// transition is still moving. Nil means always settled.
	OverlaySettled func() bool
	Events         Events
}

// Controller is the per-user playback state machine. It is not safe for
// concurrent use.
type Controller struct {
	cfg      story.Config
	slides   []story.Slide
	settled  func() bool
	events   Events
	initial  int
	status   Status
	index    int
	seenUpTo int

	holding   bool
	spotlight bool
	closed    bool

	indicators *indicator.Set
	classifier *gesture.Classifier
}

// New builds an idle controller.
func New(opts Options) *Controller {
	cfg := opts.Config.Normalized()
	slides := append([]story.Slide(nil), opts.Slides...)
	c := &Controller{
		cfg:       cfg,
		slides:    slides,
		settled:   opts.OverlaySettled,
		events:    opts.Events,
		initial:   story.ClampIndex(opts.InitialIndex, len(slides)),
		spotlight: opts.Spotlight,
	}

	durations := make([]time.Duration, len(slides))
	for i, s := range slides {
		durations[i] = cfg.SlideDurationFor(s)
	}
	c.indicators = indicator.New(opts.Clock, indicator.Config{
		Durations:       durations,
		SettleDelay:     cfg.SettleDelay,
		Hidden:          cfg.HideIndicators,
		HideWhilePaused: cfg.HideIndicatorsWhilePaused,
		OnProgress:      c.handleProgress,
		OnComplete:      c.handleTimerComplete,
	})
	c.classifier = gesture.NewClassifier(opts.Clock, cfg, c.HandleGesture)
	return c
}

// Start leaves Idle. In the spotlight the first slide plays; otherwise it
// waits frozen at progress 0. A controller without slides exhausts at once.
func (c *Controller) Start() {
	if c.closed || c.status != StatusIdle {
		return
	}
	if len(c.slides) == 0 {
		c.exhaust()
		return
	}
	c.index = c.initial
	c.seenUpTo = c.index
	c.indicators.SetPaused(c.shouldPause())
	c.indicators.Activate(c.index)
	c.syncStatus()
}

// HandleGesture routes a classified gesture.
func (c *Controller) HandleGesture(g gesture.Gesture) {
	switch g {
	case gesture.TapLeft:
		c.TapLeft()
	case gesture.TapRight:
		c.TapRight()
	case gesture.HoldStart:
		c.HoldStart()
	case gesture.HoldEnd:
		c.HoldEnd()
	}
}

// PressDown feeds a raw press to the tap/hold classifier.
func (c *Controller) PressDown(x, width float64) {
	if !c.live() {
		return
	}
	c.classifier.Down(x, width)
}

// PressUp feeds a raw release to the tap/hold classifier.
func (c *Controller) PressUp() {
	c.classifier.Up()
}

// TapRight advances to the next slide or exhausts on the last one. Taps are
// ignored while paused.
func (c *Controller) TapRight() {
	if !c.acceptsTap() {
		return
	}
	c.advance()
}

// TapLeft goes back one slide. On the first slide it asks the session for
// the previous author instead and leaves local state untouched.
func (c *Controller) TapLeft() {
	if !c.acceptsTap() {
		return
	}
	if c.index > 0 {
		c.moveTo(c.index - 1)
		return
	}
	if c.cfg.DisablePreviousUser {
		return
	}
	if c.events.OnRequestPreviousUser != nil {
		c.events.OnRequestPreviousUser()
	}
}

// HoldStart pauses playback until HoldEnd.
func (c *Controller) HoldStart() {
	if c.cfg.DisableHoldToPause || c.holding || !c.acceptsInput() {
		return
	}
	c.holding = true
	c.applyPause()
}

// HoldEnd releases a hold. It is honoured even while an overlay is moving so
// an accepted hold can always be released.
func (c *Controller) HoldEnd() {
	if !c.holding {
		return
	}
	c.holding = false
	if !c.live() {
		return
	}
	c.applyPause()
}

// SetSpotlight marks whether this author is on screen. Losing the spotlight
// pauses; regaining it resumes the frozen timer.
func (c *Controller) SetSpotlight(spotlight bool) {
	if c.spotlight == spotlight {
		return
	}
	c.spotlight = spotlight
	if !c.live() {
		return
	}
	c.applyPause()
}

// Close tears down the live timer. A closed controller ignores all input and
// emits nothing.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.classifier.Cancel()
	c.indicators.Close()
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	return c.closed
}

// Status returns the state machine status.
func (c *Controller) Status() Status {
	return c.status
}

// State returns the playback position.
func (c *Controller) State() State {
	return State{
		ActiveIndex: c.index,
		Paused:      c.status == StatusPaused,
		SeenUpTo:    c.seenUpTo,
	}
}

// SlideCount returns the number of slides.
func (c *Controller) SlideCount() int {
	return len(c.slides)
}

// ActiveSlide returns the active slide, if any.
func (c *Controller) ActiveSlide() (story.Slide, bool) {
	if len(c.slides) == 0 {
		return story.Slide{}, false
	}
	return c.slides[c.index], true
}

// Indicators returns the indicator states for rendering.
func (c *Controller) Indicators() []indicator.Indicator {
	return c.indicators.Indicators()
}

// IndicatorsVisible reports whether the host should draw indicators.
func (c *Controller) IndicatorsVisible() bool {
	return c.indicators.Visible()
}

// Progress returns the active slide's progress.
func (c *Controller) Progress() float64 {
	return c.indicators.Progress()
}

func (c *Controller) live() bool {
	return !c.closed && (c.status == StatusPlaying || c.status == StatusPaused)
}

func (c *Controller) acceptsInput() bool {
	if !c.live() {
		return false
	}
	return c.settled == nil || c.settled()
}

// acceptsTap reports whether a tap may navigate. Paused playback only leaves
// through hold-end or regaining the spotlight.
func (c *Controller) acceptsTap() bool {
	return c.status == StatusPlaying && c.acceptsInput()
}

func (c *Controller) shouldPause() bool {
	return c.holding || !c.spotlight
}

func (c *Controller) applyPause() {
	c.indicators.SetPaused(c.shouldPause())
	c.syncStatus()
}

func (c *Controller) syncStatus() {
	if c.shouldPause() {
		c.status = StatusPaused
	} else {
		c.status = StatusPlaying
	}
}

func (c *Controller) advance() {
	if c.index+1 < len(c.slides) {
		c.moveTo(c.index + 1)
		return
	}
	c.exhaust()
}

func (c *Controller) moveTo(index int) {
	c.index = index
	if index > c.seenUpTo {
		c.seenUpTo = index
	}
	c.indicators.Activate(index)
	if c.events.OnSlideChanged != nil {
		c.events.OnSlideChanged(index)
	}
}

func (c *Controller) exhaust() {
	c.status = StatusExhausted
	c.holding = false
	c.indicators.Close()
	if c.events.OnUserComplete != nil {
		c.events.OnUserComplete()
	}
}

func (c *Controller) handleProgress(index int, progress float64) {
	if c.closed || index != c.index {
		return
	}
	if c.events.OnProgress != nil {
		c.events.OnProgress(index, progress)
	}
}

func (c *Controller) handleTimerComplete(index int) {
	if c.closed || c.status != StatusPlaying || index != c.index {
		return
	}
	c.advance()
}
