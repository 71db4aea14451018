package catalog

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	t.Setenv("STORIES_PLAYER_DB_PATH", "env.db")

	cfg, err := ParseConfig(fs, []string{"-file", "stories.json", "-dry-run"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "env.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "env.db")
	}
	if cfg.File != "stories.json" || !cfg.DryRun {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseConfig_DemoFromEnv(t *testing.T) {
	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	t.Setenv("STORIES_CATALOG_DEMO", "true")

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.Demo {
		t.Fatal("expected demo from env")
	}
	if cfg.DBPath != "data/stories.db" {
		t.Fatalf("db path = %q, want default", cfg.DBPath)
	}
}

func TestRunImportsDemo(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "stories.db")

	var out bytes.Buffer
	if err := Run(context.Background(), Config{Demo: true, DBPath: dbPath}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "imported 4 user(s)") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunRequiresSource(t *testing.T) {
	if err := Run(context.Background(), Config{DBPath: "x.db"}, nil); err == nil {
		t.Fatal("expected missing source error")
	}
}
