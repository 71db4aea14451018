package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/stories/internal/services/player/storage"
	storagesqlite "github.com/louisbranch/stories/internal/services/player/storage/sqlite"
)

// Config holds configuration for the catalog importer. Exactly one of File
// and Demo selects the source.
type Config struct {
	File   string
	Demo   bool
	DBPath string
	DryRun bool
}

func validateSource(cfg Config) error {
	hasFile := strings.TrimSpace(cfg.File) != ""
	switch {
	case hasFile && cfg.Demo:
		return errors.New("file and demo are mutually exclusive")
	case !hasFile && !cfg.Demo:
		return errors.New("file or demo is required")
	}
	return nil
}

// Run executes the importer using the provided Config.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}
	if err := validateSource(cfg); err != nil {
		return err
	}

	var (
		users []storage.User
		err   error
	)
	if cfg.Demo {
		users = Demo()
	} else {
		users, err = ReadFile(strings.TrimSpace(cfg.File))
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
	}
	users, err = Normalize(users)
	if err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}

	if cfg.DryRun {
		_, err = fmt.Fprintf(out, "validated %d user(s)\n", len(users))
		return err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog storage dir: %w", err)
		}
	}
	store, err := storagesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer store.Close()
	if err := Import(ctx, store, users); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "imported %d user(s) into %s\n", len(users), cfg.DBPath)
	return err
}

// Import replaces the stored catalog with users.
func Import(ctx context.Context, store storage.CatalogStore, users []storage.User) error {
	if store == nil {
		return errors.New("catalog store is required")
	}
	if err := store.ReplaceCatalog(ctx, users); err != nil {
		return fmt.Errorf("import catalog: %w", err)
	}
	return nil
}
