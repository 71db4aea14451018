package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/stories/internal/platform/errors"
	"github.com/louisbranch/stories/internal/platform/id"
	platformotel "github.com/louisbranch/stories/internal/platform/otel"
	"github.com/louisbranch/stories/internal/playback/gesture"
	"github.com/louisbranch/stories/internal/playback/loop"
	"github.com/louisbranch/stories/internal/playback/session"
	"github.com/louisbranch/stories/internal/playback/story"
	"github.com/louisbranch/stories/internal/services/player/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/websocket"
)

const (
	modeLinear = "linear"
	modeSingle = "single"

	maxFramePayloadBytes   = 4 * 1024
	maxDecodeErrorsPerConn = 3
	outboxSize             = 256
	progressFrameEvery     = 10

	tracerName = "github.com/louisbranch/stories/internal/services/player/app"
)

var (
	errOutboxFull      = errors.New("outbound frame buffer is full")
	errInvalidFrame    = apperrors.New(apperrors.CodeInvalidArgument, "invalid frame payload")
	errPayloadTooLarge = apperrors.New(apperrors.CodeInvalidArgument, "payload too large")
)

// playRequest is the validated /play query.
type playRequest struct {
	user int
	mode string
}

func parsePlayRequest(r *http.Request) (playRequest, error) {
	req := playRequest{mode: modeLinear}
	if r == nil {
		return req, nil
	}
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("user")); raw != "" {
		user, err := strconv.Atoi(raw)
		if err != nil {
			return playRequest{}, apperrors.New(apperrors.CodeInvalidArgument, "invalid user: "+raw)
		}
		req.user = user
	}
	switch mode := strings.ToLower(strings.TrimSpace(query.Get("mode"))); mode {
	case "", modeLinear:
	case modeSingle:
		req.mode = modeSingle
	default:
		return playRequest{}, apperrors.New(apperrors.CodeInvalidArgument, "invalid mode: "+mode)
	}
	return req, nil
}

// playConn hosts one playback session over one WebSocket connection. The
// session, its slide controllers and the outbox sends all run on lp.
type playConn struct {
	conn     *websocket.Conn
	peer     *wsPeer
	settings playSettings
	logf     func(string, ...any)

	lp        *loop.Loop
	outbox    chan wsFrame
	closeOnce sync.Once
	ended     chan struct{}

	// Owned by the loop.
	sess     *session.Controller
	users    []story.UserStorySet
	offset   int
	settled  bool
	overflow bool
	span     trace.Span
}

type playSettings struct {
	config        story.Config
	previewRadius int
	frameWrite    time.Duration
}

func handlePlayConn(conn *websocket.Conn, store storage.CatalogStore, settings playSettings) {
	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}
	peer := newWSPeer(json.NewEncoder(conn))

	req, err := parsePlayRequest(conn.Request())
	if err != nil {
		_ = writeWSError(peer, err)
		return
	}
	records, err := store.Catalog(ctx)
	if err != nil {
		log.Printf("player: load catalog: %v", err)
		_ = writeWSError(peer, apperrors.Wrap(apperrors.CodeUnavailable, "catalog is unavailable", err))
		return
	}
	sessionID, err := id.NewID()
	if err != nil {
		log.Printf("player: generate session id: %v", err)
		_ = writeWSError(peer, apperrors.Wrap(apperrors.CodeInternal, "session id unavailable", err))
		return
	}

	users := make([]story.UserStorySet, len(records))
	for i, record := range records {
		users[i] = record.StorySet()
	}

	ctx, span := platformotel.Tracer(tracerName).Start(ctx, "player.session",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.mode", req.mode),
			attribute.Int("session.users", len(users)),
		),
	)
	defer span.End()

	p := &playConn{
		conn:     conn,
		peer:     peer,
		settings: settings,
		logf: func(format string, args ...any) {
			log.Printf("player session %s: %s", sessionID, fmt.Sprintf(format, args...))
		},
		outbox:  make(chan wsFrame, outboxSize),
		ended:   make(chan struct{}),
		users:   users,
		settled: true,
		span:    span,
	}
	p.lp = loop.New(0, p.logf)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = p.lp.Run(runCtx)
	}()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		p.writeFrames()
	}()

	if err := p.lp.Do(ctx, func() { p.start(sessionID, req) }); err != nil {
		p.logf("start session: %v", err)
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		p.readFrames()
	}()

	select {
	case <-readerDone:
	case <-p.ended:
	case <-ctx.Done():
	}

	_ = p.lp.Do(context.Background(), func() {
		if p.sess != nil {
			p.sess.Close()
		}
	})
	p.lp.Stop()
	<-runDone
	// Sends only happen on the loop, which has exited.
	close(p.outbox)
	<-writerDone
}

func (p *playConn) start(sessionID string, req playRequest) {
	opts := session.Options{
		Clock:          p.lp.Clock(),
		Config:         p.settings.config,
		PreviewRadius:  p.settings.previewRadius,
		OverlaySettled: func() bool { return p.settled },
		Renderer:       session.RendererFunc(p.renderSlide),
		Events: session.Events{
			OnSlideChanged:        p.slideChanged,
			OnUserComplete:        p.userComplete,
			OnRequestPreviousUser: p.previousUser,
			OnSessionClosed:       p.sessionClosed,
			OnProgress:            p.progress,
		},
		Logf: p.logf,
	}

	var (
		sess *session.Controller
		err  error
	)
	switch req.mode {
	case modeSingle:
		if len(p.users) == 0 {
			err = session.ErrNoUsers
			break
		}
		p.offset = story.ClampIndex(req.user, len(p.users))
		p.users = p.users[p.offset : p.offset+1]
		sess, err = session.NewSingleUser(opts, p.users[0])
	default:
		opts.Users = p.users
		opts.Config.InitialUser = req.user
		sess, err = session.New(opts)
	}
	if err != nil {
		code := apperrors.CodeInternal
		if errors.Is(err, session.ErrNoUsers) || errors.Is(err, session.ErrNoSlides) {
			code = apperrors.CodeFailedPrecondition
		}
		p.span.SetStatus(codes.Error, err.Error())
		p.send(errorFrame(apperrors.Wrap(code, err.Error(), err)))
		p.end()
		return
	}
	p.sess = sess

	started := sessionStartedPayload{SessionID: sessionID, Users: make([]userPayload, len(p.users))}
	for i, u := range p.users {
		started.Users[i] = userPayload{Name: u.Name, Avatar: u.Avatar, Slides: len(u.Slides)}
	}
	p.send(wsFrame{Type: frameSessionStarted, Payload: mustJSON(started)})
	sess.Start()
}

func (p *playConn) renderSlide(user, index int, s story.Slide) error {
	u, ok := p.sess.User(user)
	if !ok {
		return fmt.Errorf("unknown user %d", user)
	}
	return p.send(wsFrame{Type: frameSlideChanged, Payload: mustJSON(slideChangedPayload{
		User:    user + p.offset,
		Slide:   index,
		Content: s.Content,
		Name:    u.Name,
		Avatar:  u.Avatar,
	})})
}

func (p *playConn) slideChanged(user, index int) {
	p.span.AddEvent("slide_changed", trace.WithAttributes(
		attribute.Int("user", user+p.offset),
		attribute.Int("slide", index),
	))
}

func (p *playConn) userComplete(user int) {
	p.span.AddEvent("user_complete", trace.WithAttributes(attribute.Int("user", user+p.offset)))
	p.send(wsFrame{Type: frameUserComplete, Payload: mustJSON(userCompletePayload{User: user + p.offset})})
}

func (p *playConn) previousUser() {
	p.span.AddEvent("previous_user")
	p.send(wsFrame{Type: framePreviousUser})
}

func (p *playConn) sessionClosed() {
	p.span.AddEvent("session_closed")
	p.send(wsFrame{Type: frameSessionClosed})
	p.end()
}

func (p *playConn) progress(user, index int, progress float64) {
	step := int(math.Round(progress * 100))
	if step%progressFrameEvery != 0 {
		return
	}
	p.send(wsFrame{Type: frameProgress, Payload: mustJSON(progressPayload{
		User:     user + p.offset,
		Slide:    index,
		Progress: float64(step) / 100,
	})})
}

// send queues frame for the writer without blocking the loop. A client that
// cannot keep up is disconnected.
func (p *playConn) send(frame wsFrame) error {
	if p.overflow {
		return errOutboxFull
	}
	select {
	case p.outbox <- frame:
		return nil
	default:
		p.overflow = true
		p.logf("dropping slow client: %v", errOutboxFull)
		p.end()
		return errOutboxFull
	}
}

func (p *playConn) end() {
	p.closeOnce.Do(func() { close(p.ended) })
}

func (p *playConn) writeFrames() {
	failed := false
	for frame := range p.outbox {
		if failed {
			continue
		}
		if p.settings.frameWrite > 0 {
			_ = p.conn.SetWriteDeadline(time.Now().Add(p.settings.frameWrite))
		}
		if err := p.peer.writeFrame(frame); err != nil {
			failed = true
			p.logf("write %s frame: %v", frame.Type, err)
			p.end()
		}
	}
}

func (p *playConn) readFrames() {
	decodeErrors := 0
	for {
		var frame wsFrame
		if err := websocket.JSON.Receive(p.conn, &frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case <-p.ended:
				return
			default:
			}
			decodeErrors++
			p.reportError(errInvalidFrame)
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			p.reportError(errPayloadTooLarge)
			continue
		}
		if err := p.dispatch(frame); err != nil {
			p.reportError(err)
		}
	}
}

// reportError queues an error frame behind the frames already sent, under
// the same slow-client policy.
func (p *playConn) reportError(err error) {
	frame := errorFrame(err)
	p.lp.Post(func() {
		_ = p.send(frame)
	})
}

func (p *playConn) dispatch(frame wsFrame) error {
	if g, ok := gesture.Parse(frame.Type); ok {
		p.post(func(s *session.Controller) { s.HandleGesture(g) })
		return nil
	}

	switch frame.Type {
	case frameDown:
		var payload downPayload
		if err := decodePayload(frame, &payload); err != nil {
			return err
		}
		p.post(func(s *session.Controller) { s.PressDown(payload.X, payload.Width) })
	case frameUp:
		p.post(func(s *session.Controller) { s.PressUp() })
	case frameClose:
		p.post(func(s *session.Controller) { s.Close() })
	case frameForeground:
		var payload foregroundPayload
		if err := decodePayload(frame, &payload); err != nil {
			return err
		}
		p.post(func(s *session.Controller) { s.SetForeground(payload.Value) })
	case frameOverlay:
		var payload overlayPayload
		if err := decodePayload(frame, &payload); err != nil {
			return err
		}
		p.post(func(*session.Controller) { p.settled = payload.Settled })
	case frameJump:
		var payload jumpPayload
		if err := decodePayload(frame, &payload); err != nil {
			return err
		}
		p.post(func(s *session.Controller) { s.JumpTo(payload.User - p.offset) })
	default:
		return apperrors.New(apperrors.CodeInvalidArgument, "unknown frame type: "+frame.Type)
	}
	return nil
}

// post runs fn on the loop when a session exists.
func (p *playConn) post(fn func(*session.Controller)) {
	p.lp.Post(func() {
		if p.sess == nil {
			return
		}
		fn(p.sess)
	})
}

func decodePayload(frame wsFrame, target any) error {
	if len(frame.Payload) == 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, frame.Type+" payload is required")
	}
	if err := json.Unmarshal(frame.Payload, target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid "+frame.Type+" payload", err)
	}
	return nil
}
