// Package session implements the top-level stories state machine: which
// author is in the spotlight, where playback goes when an author runs out of
// slides, and when the session ends.
package session

import (
	"errors"
	"fmt"
	"log"

	"github.com/louisbranch/stories/internal/playback/clock"
	"github.com/louisbranch/stories/internal/playback/gesture"
	"github.com/louisbranch/stories/internal/playback/indicator"
	"github.com/louisbranch/stories/internal/playback/slide"
	"github.com/louisbranch/stories/internal/playback/story"
)

var (
	// ErrNoUsers indicates a session was built without any user story sets.
	ErrNoUsers = errors.New("session: no users")
	// ErrNoSlides indicates that no user story set has a slide to play.
	ErrNoSlides = errors.New("session: no user has slides")
)

// Status is the session state.
type Status int

const (
	// StatusIdle is the state before Start.
	StatusIdle Status = iota
	// StatusAtUser means one author is in the spotlight.
	StatusAtUser
	// StatusClosed is terminal.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAtUser:
		return "at_user"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// State is the externally visible session position.
type State struct {
	ActiveUserIndex int
	Playback        slide.State
}

// Events are read-only notifications about session progress.
type Events struct {
	OnSlideChanged        func(user, slide int)
	OnUserComplete        func(user int)
	OnRequestPreviousUser func()
	OnSessionClosed       func()
	OnProgress            func(user, slide int, progress float64)
}

// Renderer draws the active slide. Failures are logged and never affect
// playback.
type Renderer interface {
	RenderSlide(user, index int, s story.Slide) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(user, index int, s story.Slide) error

// RenderSlide calls f.
func (f RendererFunc) RenderSlide(user, index int, s story.Slide) error {
	return f(user, index, s)
}

// Options configures a Controller.
type Options struct {
	Clock  clock.Clock
	Config story.Config
	Users  []story.UserStorySet
	// PreviewRadius keeps paused controllers for this many neighbours on
	// each side of the spotlight user.
	PreviewRadius  int
	OverlaySettled func() bool
	Renderer       Renderer
	Events         Events
	// Logf receives collaborator failures. Defaults to log.Printf.
	Logf func(string, ...any)
}

// Controller owns the session state. It is not safe for concurrent use; all
// calls and clock callbacks must happen on one sequence.
type Controller struct {
	clock    clock.Clock
	cfg      story.Config
	users    []story.UserStorySet
	radius   int
	settled  func() bool
	renderer Renderer
	events   Events
	logf     func(string, ...any)
	single   bool

	status     Status
	active     int
	foreground bool
	current    *slide.Controller
	previews   map[int]*slide.Controller
}

// New builds a linear session over users. It fails when there is nothing to
// play.
func New(opts Options) (*Controller, error) {
	if len(opts.Users) == 0 {
		return nil, ErrNoUsers
	}
	users := make([]story.UserStorySet, len(opts.Users))
	navigable := false
	for i, u := range opts.Users {
		users[i] = story.NormalizeUserStorySet(u)
		if users[i].Navigable() {
			navigable = true
		}
	}
	if !navigable {
		return nil, ErrNoSlides
	}
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	radius := opts.PreviewRadius
	if radius < 0 {
		radius = 0
	}
	cfg := opts.Config.Normalized()
	c := &Controller{
		clock:      opts.Clock,
		cfg:        cfg,
		users:      users,
		radius:     radius,
		settled:    opts.OverlaySettled,
		renderer:   opts.Renderer,
		events:     opts.Events,
		logf:       logf,
		foreground: true,
		previews:   map[int]*slide.Controller{},
	}
	c.active = c.resolve(story.ClampIndex(cfg.InitialUser, len(users)))
	return c, nil
}

// NewSingleUser builds a session over one author's slides. Completing the
// author closes the session and previous-user requests are no-ops.
func NewSingleUser(opts Options, user story.UserStorySet) (*Controller, error) {
	opts.Users = []story.UserStorySet{user}
	opts.Config.InitialUser = 0
	opts.PreviewRadius = 0
	c, err := New(opts)
	if err != nil {
		return nil, fmt.Errorf("single user session: %w", err)
	}
	c.single = true
	return c, nil
}

// Start puts the initial user in the spotlight.
func (c *Controller) Start() {
	if c.status != StatusIdle {
		return
	}
	c.enter(c.active)
}

// Close ends the session. It is idempotent and emits OnSessionClosed once.
func (c *Controller) Close() {
	if c.status == StatusClosed {
		return
	}
	c.status = StatusClosed
	c.teardown()
	if c.events.OnSessionClosed != nil {
		c.events.OnSessionClosed()
	}
}

// JumpTo moves the spotlight straight to user k, as a pager swipe does. The
// index is clamped and empty users are skipped forward, then backward.
func (c *Controller) JumpTo(k int) {
	if c.status != StatusAtUser || c.single {
		return
	}
	k = c.resolve(story.ClampIndex(k, len(c.users)))
	if k == c.active {
		return
	}
	c.enter(k)
}

// SetForeground pauses the spotlight user while the host is in the
// background and resumes it when it returns.
func (c *Controller) SetForeground(foreground bool) {
	if c.foreground == foreground {
		return
	}
	c.foreground = foreground
	if c.current != nil {
		c.current.SetSpotlight(foreground)
	}
}

// Foreground reports whether the host is in the foreground.
func (c *Controller) Foreground() bool {
	return c.foreground
}

// HandleGesture forwards a classified gesture to the spotlight user.
func (c *Controller) HandleGesture(g gesture.Gesture) {
	if ctrl := c.live(); ctrl != nil {
		ctrl.HandleGesture(g)
	}
}

// TapLeft forwards a left tap.
func (c *Controller) TapLeft() { c.HandleGesture(gesture.TapLeft) }

// TapRight forwards a right tap.
func (c *Controller) TapRight() { c.HandleGesture(gesture.TapRight) }

// HoldStart forwards the start of a hold.
func (c *Controller) HoldStart() { c.HandleGesture(gesture.HoldStart) }

// HoldEnd forwards the end of a hold.
func (c *Controller) HoldEnd() { c.HandleGesture(gesture.HoldEnd) }

// PressDown forwards a raw press to the spotlight user's classifier.
func (c *Controller) PressDown(x, width float64) {
	if ctrl := c.live(); ctrl != nil {
		ctrl.PressDown(x, width)
	}
}

// PressUp forwards a raw release.
func (c *Controller) PressUp() {
	if ctrl := c.live(); ctrl != nil {
		ctrl.PressUp()
	}
}

// Status returns the session status.
func (c *Controller) Status() Status {
	return c.status
}

// State returns the session position. Playback is zero once closed.
func (c *Controller) State() State {
	st := State{ActiveUserIndex: c.active}
	if ctrl := c.live(); ctrl != nil {
		st.Playback = ctrl.State()
	}
	return st
}

// UserCount returns the number of users, including empty ones.
func (c *Controller) UserCount() int {
	return len(c.users)
}

// User returns the normalised story set at index k.
func (c *Controller) User(k int) (story.UserStorySet, bool) {
	if k < 0 || k >= len(c.users) {
		return story.UserStorySet{}, false
	}
	return c.users[k], true
}

// Config returns the normalised session configuration.
func (c *Controller) Config() story.Config {
	return c.cfg
}

// Indicators returns the spotlight user's indicators.
func (c *Controller) Indicators() []indicator.Indicator {
	if ctrl := c.live(); ctrl != nil {
		return ctrl.Indicators()
	}
	return nil
}

// IndicatorsVisible reports whether the host should draw the spotlight
// user's indicators.
func (c *Controller) IndicatorsVisible() bool {
	if ctrl := c.live(); ctrl != nil {
		return ctrl.IndicatorsVisible()
	}
	return false
}

// Preview returns the paused controller kept for neighbour k.
func (c *Controller) Preview(k int) (slide.State, bool) {
	ctrl, ok := c.previews[k]
	if !ok {
		return slide.State{}, false
	}
	return ctrl.State(), true
}

func (c *Controller) live() *slide.Controller {
	if c.status != StatusAtUser {
		return nil
	}
	return c.current
}

func (c *Controller) enter(k int) {
	c.teardown()
	c.status = StatusAtUser
	c.active = k

	var ctrl *slide.Controller
	ctrl = slide.New(slide.Options{
		Clock:          c.clock,
		Config:         c.cfg,
		Slides:         c.users[k].Slides,
		Spotlight:      c.foreground,
		OverlaySettled: c.settled,
		Events: slide.Events{
			OnSlideChanged: func(index int) {
				if c.current != ctrl {
					return
				}
				c.slideChanged(k, index)
			},
			OnUserComplete: func() {
				if c.current != ctrl {
					return
				}
				c.userComplete(ctrl, k)
			},
			OnRequestPreviousUser: func() {
				if c.current != ctrl {
					return
				}
				c.previousUser(ctrl, k)
			},
			OnProgress: func(index int, progress float64) {
				if c.current != ctrl || c.events.OnProgress == nil {
					return
				}
				c.events.OnProgress(k, index, progress)
			},
		},
	})
	c.current = ctrl

	for d := 1; d <= c.radius; d++ {
		c.preview(k - d)
		c.preview(k + d)
	}

	ctrl.Start()
	if c.current == ctrl && c.status == StatusAtUser {
		c.slideChanged(k, ctrl.State().ActiveIndex)
	}
}

func (c *Controller) preview(k int) {
	if k < 0 || k >= len(c.users) || !c.users[k].Navigable() {
		return
	}
	p := slide.New(slide.Options{
		Clock:  c.clock,
		Config: c.cfg,
		Slides: c.users[k].Slides,
	})
	p.Start()
	c.previews[k] = p
}

func (c *Controller) teardown() {
	if c.current != nil {
		c.current.Close()
		c.current = nil
	}
	for k, p := range c.previews {
		p.Close()
		delete(c.previews, k)
	}
}

func (c *Controller) slideChanged(user, index int) {
	c.render(user, index)
	if c.events.OnSlideChanged != nil {
		c.events.OnSlideChanged(user, index)
	}
}

func (c *Controller) userComplete(ctrl *slide.Controller, k int) {
	if c.events.OnUserComplete != nil {
		c.events.OnUserComplete(k)
	}
	// The handler may have closed or moved the session.
	if c.status != StatusAtUser || c.current != ctrl {
		return
	}
	next, ok := c.next(k)
	if c.single || !ok {
		c.Close()
		return
	}
	c.enter(next)
}

func (c *Controller) previousUser(ctrl *slide.Controller, k int) {
	if c.events.OnRequestPreviousUser != nil {
		c.events.OnRequestPreviousUser()
	}
	if c.status != StatusAtUser || c.current != ctrl || c.single {
		return
	}
	prev, ok := c.previous(k)
	if !ok {
		return
	}
	c.enter(prev)
}

func (c *Controller) render(user, index int) {
	if c.renderer == nil {
		return
	}
	slides := c.users[user].Slides
	if index < 0 || index >= len(slides) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logf("render user %d slide %d panicked: %v", user, index, r)
		}
	}()
	if err := c.renderer.RenderSlide(user, index, slides[index]); err != nil {
		c.logf("render user %d slide %d: %v", user, index, err)
	}
}

func (c *Controller) next(k int) (int, bool) {
	for i := k + 1; i < len(c.users); i++ {
		if c.users[i].Navigable() {
			return i, true
		}
	}
	return 0, false
}

func (c *Controller) previous(k int) (int, bool) {
	for i := k - 1; i >= 0; i-- {
		if c.users[i].Navigable() {
			return i, true
		}
	}
	return 0, false
}

// resolve maps k to a navigable user, searching forward first.
func (c *Controller) resolve(k int) int {
	if c.users[k].Navigable() {
		return k
	}
	if next, ok := c.next(k); ok {
		return next
	}
	if prev, ok := c.previous(k); ok {
		return prev
	}
	return k
}
