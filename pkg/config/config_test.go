package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Crawler.FetchTimeout != 2*time.Second {
		t.Errorf("fetch timeout = %v, want 2s", cfg.Crawler.FetchTimeout)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("cache ttl = %v, want 1h", cfg.Cache.TTL)
	}
	if !strings.HasSuffix(cfg.Cache.Dir, AppName) {
		t.Errorf("cache dir %q should end in %q", cfg.Cache.Dir, AppName)
	}
	if cfg.Index.DefaultLimit != 10 {
		t.Errorf("default limit = %d, want 10", cfg.Index.DefaultLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minecrawler.yaml")
	yamlDoc := `
crawler:
  fetchTimeout: 500ms
  workers: 4
cache:
  dir: /tmp/mc-test
  ttl: 30m
index:
  defaultLimit: 25
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MC_CACHE_TTL", "2h")
	t.Setenv("MC_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Crawler.FetchTimeout != 500*time.Millisecond {
		t.Errorf("fetch timeout = %v", cfg.Crawler.FetchTimeout)
	}
	if cfg.Crawler.Workers != 4 {
		t.Errorf("workers = %d", cfg.Crawler.Workers)
	}
	if cfg.Cache.Dir != "/tmp/mc-test" {
		t.Errorf("cache dir = %q", cfg.Cache.Dir)
	}
	if cfg.Cache.TTL != 2*time.Hour {
		t.Errorf("env override not applied, ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Index.DefaultLimit != 25 {
		t.Errorf("default limit = %d", cfg.Index.DefaultLimit)
	}
	if cfg.Index.TitleBoost != 2.0 {
		t.Errorf("unset yaml key should keep default boost, got %v", cfg.Index.TitleBoost)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("crawler:\n  fetchTimeout: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for zero fetch timeout")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
