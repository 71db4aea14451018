// Package player parses player command flags and launches the player runtime.
package player

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/stories/internal/platform/cmd"
	"github.com/louisbranch/stories/internal/playback/story"
	playerserver "github.com/louisbranch/stories/internal/services/player/app"
)

// Config holds player command configuration.
type Config struct {
	HTTPAddr          string        `env:"STORIES_PLAYER_HTTP_ADDR" envDefault:":8095"`
	HealthPort        int           `env:"STORIES_PLAYER_HEALTH_PORT" envDefault:"8096"`
	DBPath            string        `env:"STORIES_PLAYER_DB_PATH" envDefault:"data/stories.db"`
	SlideDuration     time.Duration `env:"STORIES_PLAYER_SLIDE_DURATION" envDefault:"5s"`
	HoldThreshold     time.Duration `env:"STORIES_PLAYER_HOLD_THRESHOLD" envDefault:"200ms"`
	SettleDelay       time.Duration `env:"STORIES_PLAYER_SETTLE_DELAY" envDefault:"200ms"`
	TapZoneSplit      float64       `env:"STORIES_PLAYER_TAP_SPLIT" envDefault:"0.25"`
	PreviewRadius     int           `env:"STORIES_PLAYER_PREVIEW_RADIUS" envDefault:"0"`
	FrameWriteTimeout time.Duration `env:"STORIES_PLAYER_FRAME_WRITE_TIMEOUT" envDefault:"2s"`
	Legacy            bool          `env:"STORIES_PLAYER_LEGACY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The player health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The story catalog SQLite database path")
	fs.DurationVar(&cfg.SlideDuration, "slide-duration", cfg.SlideDuration, "Default slide duration")
	fs.DurationVar(&cfg.HoldThreshold, "hold-threshold", cfg.HoldThreshold, "Press length that counts as a hold")
	fs.DurationVar(&cfg.SettleDelay, "settle-delay", cfg.SettleDelay, "Pause between a full indicator and advancing")
	fs.Float64Var(&cfg.TapZoneSplit, "tap-split", cfg.TapZoneSplit, "Fraction of the width that navigates back")
	fs.IntVar(&cfg.PreviewRadius, "preview-radius", cfg.PreviewRadius, "Paused neighbour users kept on each side")
	fs.DurationVar(&cfg.FrameWriteTimeout, "frame-write-timeout", cfg.FrameWriteTimeout, "WebSocket frame write timeout")
	fs.BoolVar(&cfg.Legacy, "legacy", cfg.Legacy, "Use the legacy playback profile")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Playback builds the session configuration from the command settings.
func (c Config) Playback() story.Config {
	playback := story.DefaultConfig()
	if c.Legacy {
		playback = story.LegacyProfile()
	}
	playback.SlideDuration = c.SlideDuration
	playback.HoldThreshold = c.HoldThreshold
	playback.SettleDelay = c.SettleDelay
	playback.TapZoneSplit = c.TapZoneSplit
	return playback.Normalized()
}

// Run starts the player runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlayer, func(context.Context) error {
		return playerserver.Run(ctx, playerserver.RuntimeConfig{
			HTTPAddr:          cfg.HTTPAddr,
			HealthPort:        cfg.HealthPort,
			DBPath:            cfg.DBPath,
			Playback:          cfg.Playback(),
			PreviewRadius:     cfg.PreviewRadius,
			FrameWriteTimeout: cfg.FrameWriteTimeout,
		})
	})
}
