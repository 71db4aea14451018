package app

import (
	"encoding/json"
	"log"
	"sync"

	apperrors "github.com/louisbranch/stories/internal/platform/errors"
)

const (
	frameSessionStarted = "session_started"
	frameSlideChanged   = "slide_changed"
	frameUserComplete   = "user_complete"
	framePreviousUser   = "previous_user"
	frameProgress       = "progress"
	frameSessionClosed  = "session_closed"
	frameError          = "error"

	frameDown       = "down"
	frameUp         = "up"
	frameClose      = "close"
	frameForeground = "foreground"
	frameOverlay    = "overlay"
	frameJump       = "jump"
)

type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type downPayload struct {
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

type foregroundPayload struct {
	Value bool `json:"value"`
}

type overlayPayload struct {
	Settled bool `json:"settled"`
}

type jumpPayload struct {
	User int `json:"user"`
}

type sessionStartedPayload struct {
	SessionID string        `json:"session_id"`
	Users     []userPayload `json:"users"`
}

type userPayload struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Slides int    `json:"slides"`
}

type slideChangedPayload struct {
	User    int    `json:"user"`
	Slide   int    `json:"slide"`
	Content string `json:"content"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
}

type userCompletePayload struct {
	User int `json:"user"`
}

type progressPayload struct {
	User     int     `json:"user"`
	Slide    int     `json:"slide"`
	Progress float64 `json:"progress"`
}

type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

func writeWSError(peer *wsPeer, err error) error {
	return peer.writeFrame(errorFrame(err))
}

// errorFrame reports err with its code. Uncoded errors are reported as
// internal without their message.
func errorFrame(err error) wsFrame {
	code := apperrors.CodeOf(err)
	message := "internal error"
	if code != apperrors.CodeUnknown {
		message = err.Error()
	} else {
		code = apperrors.CodeInternal
	}
	return wsFrame{
		Type:    frameError,
		Payload: mustJSON(wsError{Code: string(code), Message: message}),
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("failed to marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
