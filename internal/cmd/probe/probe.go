// Package probe checks that a running player reports SERVING over gRPC
// health, for container health checks and deploy gates.
package probe

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/stories/internal/platform/cmd"
	"github.com/louisbranch/stories/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/stories/internal/platform/grpc"
	"github.com/louisbranch/stories/internal/platform/timeouts"
	playerserver "github.com/louisbranch/stories/internal/services/player/app"
)

// Config holds probe command configuration.
type Config struct {
	Addr    string        `env:"STORIES_PROBE_ADDR"`
	Service string        `env:"STORIES_PROBE_SERVICE"`
	Timeout time.Duration `env:"STORIES_PROBE_TIMEOUT"`
	Verbose bool          `env:"STORIES_PROBE_VERBOSE"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Addr = discovery.OrDefaultGRPCAddr(cfg.Addr, discovery.ServicePlayer)
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = playerserver.HealthService
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The player health gRPC address")
	fs.StringVar(&cfg.Service, "service", cfg.Service, "Health service name to check")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Overall probe timeout")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Log each health attempt")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return Config{}, errors.New("addr is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.GRPCDial
	}
	return cfg, nil
}

// Run dials the player health endpoint and writes the result to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceProbe, func(ctx context.Context) error {
		var logf func(string, ...any)
		if cfg.Verbose {
			logf = log.Printf
		}
		conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.Addr, cfg.Service, cfg.Timeout, logf)
		if err != nil {
			return fmt.Errorf("probe %s: %w", cfg.Addr, err)
		}
		if err := conn.Close(); err != nil {
			log.Printf("close probe connection: %v", err)
		}
		_, err = fmt.Fprintf(out, "%s SERVING at %s\n", cfg.Service, cfg.Addr)
		return err
	})
}
