// Package app hosts story playback sessions over WebSocket and serves the
// stored catalog.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/louisbranch/stories/internal/platform/errors"
	"github.com/louisbranch/stories/internal/platform/pagination"
	"github.com/louisbranch/stories/internal/platform/timeouts"
	"github.com/louisbranch/stories/internal/playback/story"
	"github.com/louisbranch/stories/internal/services/player/storage"
	"golang.org/x/net/websocket"
)

var catalogPageSize = pagination.PageSizeConfig{Default: 20, Max: 100}

// Config defines the inputs for the player HTTP boundary.
type Config struct {
	HTTPAddr string
	// Playback is the session configuration every connection starts from.
	Playback          story.Config
	PreviewRadius     int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	FrameWriteTimeout time.Duration
}

func (c Config) normalized() Config {
	c.HTTPAddr = strings.TrimSpace(c.HTTPAddr)
	c.Playback = c.Playback.Normalized()
	if c.PreviewRadius < 0 {
		c.PreviewRadius = 0
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = timeouts.Shutdown
	}
	if c.FrameWriteTimeout <= 0 {
		c.FrameWriteTimeout = timeouts.FrameWrite
	}
	return c
}

// Server hosts the player HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

type catalogResponse struct {
	Users         []catalogUser `json:"users"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type catalogUser struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Avatar string         `json:"avatar"`
	Slides []catalogSlide `json:"slides"`
}

type catalogSlide struct {
	Content    string `json:"content"`
	DurationMS int64  `json:"duration_ms"`
}

// NewHandler builds the player routes over store.
func NewHandler(store storage.CatalogStore, config Config) http.Handler {
	config = config.normalized()
	settings := playSettings{
		config:        config.Playback,
		previewRadius: config.PreviewRadius,
		frameWrite:    config.FrameWriteTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/catalog", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		serveCatalog(w, r, store)
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handlePlayConn(conn, store, settings)
	})
	mux.HandleFunc("/play", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if store == nil {
			http.Error(w, "catalog is not configured", http.StatusServiceUnavailable)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	return mux
}

func serveCatalog(w http.ResponseWriter, r *http.Request, store storage.CatalogStore) {
	if store == nil {
		http.Error(w, "catalog is not configured", http.StatusServiceUnavailable)
		return
	}
	query := r.URL.Query()
	pageSize, err := pagination.ParsePageSize(query.Get("page_size"), catalogPageSize)
	if err != nil {
		writeHTTPError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err))
		return
	}
	page, err := store.ListUsers(r.Context(), pageSize, query.Get("page_token"))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPageToken) {
			writeHTTPError(w, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid page_token", err))
			return
		}
		log.Printf("player: list catalog: %v", err)
		writeHTTPError(w, apperrors.Wrap(apperrors.CodeUnavailable, "catalog is unavailable", err))
		return
	}

	resp := catalogResponse{Users: make([]catalogUser, 0, len(page.Users)), NextPageToken: page.NextPageToken}
	for _, u := range page.Users {
		user := catalogUser{ID: u.ID, Name: u.Name, Avatar: u.Avatar, Slides: make([]catalogSlide, 0, len(u.Slides))}
		for _, s := range u.Slides {
			user.Slides = append(user.Slides, catalogSlide{Content: s.Content, DurationMS: s.Duration.Milliseconds()})
		}
		resp.Users = append(resp.Users, user)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("player: encode catalog: %v", err)
	}
}

func writeHTTPError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	http.Error(w, err.Error(), code.HTTPStatus())
}

// NewServer builds a configured player server.
func NewServer(config Config, store storage.CatalogStore) (*Server, error) {
	config = config.normalized()
	if config.HTTPAddr == "" {
		return nil, errors.New("http address is required")
	}
	if store == nil {
		return nil, errors.New("catalog store is required")
	}

	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           NewHandler(store, config),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	return &Server{
		httpAddr:        config.HTTPAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("player server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	// Hijacked playback connections outlive Shutdown; tie them to ctx.
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	serveErr := make(chan error, 1)
	log.Printf("player server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
