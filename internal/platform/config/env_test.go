package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port int `env:"STORIES_TEST_PORT" envDefault:"123"`
}

type prefixedTestConfig struct {
	Addr   string        `env:"ADDR" envDefault:":8080"`
	Settle time.Duration `env:"SETTLE" envDefault:"200ms"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("port = %d, want 123", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("STORIES_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvWithPrefix(t *testing.T) {
	t.Setenv("STORIES_PLAYER_ADDR", ":9000")

	var cfg prefixedTestConfig
	if err := ParseEnvWithPrefix(&cfg, "STORIES_PLAYER_"); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, ":9000")
	}
	if cfg.Settle != 200*time.Millisecond {
		t.Fatalf("settle = %v, want 200ms", cfg.Settle)
	}
}

func TestParseEnvWithPrefixError(t *testing.T) {
	t.Setenv("STORIES_BAD_SETTLE", "soon")

	var cfg prefixedTestConfig
	err := ParseEnvWithPrefix(&cfg, "STORIES_BAD_")
	if err == nil || !strings.Contains(err.Error(), "STORIES_BAD_") {
		t.Fatalf("err = %v, want prefixed parse error", err)
	}
}
