package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bfinder/bfinder/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsApplied(t *testing.T) {
	path := writeConfig(t, "scan_path: /srv/data\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScanPath != "/srv/data" {
		t.Errorf("ScanPath = %q, want /srv/data", cfg.ScanPath)
	}
	if cfg.Top != 10 {
		t.Errorf("Top = %d, want default 10", cfg.Top)
	}
	if cfg.Schedule == "" {
		t.Error("expected default schedule to be set")
	}
	if cfg.HTTPAddr == "" {
		t.Error("expected default http_addr to be set")
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0 (auto)", cfg.Workers)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScanPath != "." || cfg.Top != 10 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "scan_path: /srv\nno_such_key: true\n")
	if _, err := config.Load(path); err == nil {
		t.Error("expected error for unknown config key")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
scan_path: /srv/data
top: 25
workers: 8
schedule: "30 1 * * *"
scan_paused: true
http_addr: ":9090"
log_level: debug
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Top != 25 || cfg.Workers != 8 || !cfg.ScanPaused {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Schedule != "30 1 * * *" || cfg.HTTPAddr != ":9090" || cfg.LogLevel != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
