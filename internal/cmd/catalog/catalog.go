// Package catalog parses catalog import flags and runs the importer.
package catalog

import (
	"context"
	"flag"
	"io"

	entrypoint "github.com/louisbranch/stories/internal/platform/cmd"
	playercatalog "github.com/louisbranch/stories/internal/services/player/catalog"
)

// Config holds catalog import command configuration.
type Config struct {
	File   string `env:"STORIES_CATALOG_FILE"`
	Demo   bool   `env:"STORIES_CATALOG_DEMO"`
	DBPath string `env:"STORIES_PLAYER_DB_PATH" envDefault:"data/stories.db"`
	DryRun bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.File, "file", cfg.File, "catalog JSON file")
	fs.BoolVar(&cfg.Demo, "demo", cfg.Demo, "import the built-in demo catalog")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "catalog database path")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate without writing to the database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run imports the configured catalog and reports the result to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCatalogImport, func(ctx context.Context) error {
		return playercatalog.Run(ctx, playercatalog.Config{
			File:   cfg.File,
			Demo:   cfg.Demo,
			DBPath: cfg.DBPath,
			DryRun: cfg.DryRun,
		}, out)
	})
}
