package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "roundtable.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.HTTPAddr != "localhost:8081" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-db", "campaign.db",
		"-http-addr", "localhost:9090",
		"-transport", "http",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "campaign.db" {
		t.Fatalf("expected db override, got %q", cfg.DBPath)
	}
	if cfg.HTTPAddr != "localhost:9090" {
		t.Fatalf("expected http addr override, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
}

func TestParseConfigReadsEnv(t *testing.T) {
	t.Setenv("ROUNDTABLE_MCP_TRANSPORT", "http")
	t.Setenv("ROUNDTABLE_DB_PATH", "env.db")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db", "flag.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected env transport http, got %q", cfg.Transport)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("expected flag to win over env, got %q", cfg.DBPath)
	}
}
