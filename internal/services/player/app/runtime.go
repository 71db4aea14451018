package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/stories/internal/platform/grpc"
	"github.com/louisbranch/stories/internal/playback/story"
	playersqlite "github.com/louisbranch/stories/internal/services/player/storage/sqlite"
)

// HealthService is the gRPC health service name reported by the player.
const HealthService = "stories.player"

// RuntimeConfig controls player startup and its dependencies.
type RuntimeConfig struct {
	HTTPAddr          string
	HealthPort        int
	DBPath            string
	Playback          story.Config
	PreviewRadius     int
	FrameWriteTimeout time.Duration
}

const (
	defaultHTTPAddr   = ":8095"
	defaultHealthPort = 8096
	defaultPlayerDB   = "data/stories.db"
)

// Run opens the catalog store and serves playback until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultPlayerDB
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create player storage dir: %w", err)
		}
	}

	store, err := playersqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open player sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close player sqlite store: %v", closeErr)
		}
	}()

	server, err := NewServer(Config{
		HTTPAddr:          cfg.HTTPAddr,
		Playback:          cfg.Playback,
		PreviewRadius:     cfg.PreviewRadius,
		FrameWriteTimeout: cfg.FrameWriteTimeout,
	}, store)
	if err != nil {
		return fmt.Errorf("init player server: %w", err)
	}

	health, err := platformgrpc.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), HealthService)
	if err != nil {
		return fmt.Errorf("start health server: %w", err)
	}
	healthCtx, stopHealth := context.WithCancel(ctx)
	healthErr := make(chan error, 1)
	go func() {
		healthErr <- health.Serve(healthCtx)
	}()
	defer func() {
		stopHealth()
		if err := <-healthErr; err != nil {
			log.Printf("health server: %v", err)
		}
	}()

	if err := server.ListenAndServe(ctx); err != nil {
		health.SetServing(HealthService, false)
		return fmt.Errorf("serve player: %w", err)
	}
	return nil
}
