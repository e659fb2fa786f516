package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "contextd.toml", `
version = 1

[watch]
debounce_ms = 250
mark_ttl_seconds = 30

[storage]
path = "/tmp/contextd-test.db"

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Watch.DebounceMs != 250 {
		t.Errorf("debounce_ms not applied: %d", cfg.Watch.DebounceMs)
	}
	if cfg.Watch.MarkTTLSeconds != 30 {
		t.Errorf("mark_ttl_seconds not applied: %d", cfg.Watch.MarkTTLSeconds)
	}
	if cfg.Storage.Path != "/tmp/contextd-test.db" {
		t.Errorf("storage path not applied: %s", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging section not applied: %+v", cfg.Logging)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "contextd.yaml", `
version: 1
watch:
  debounce_ms: 150
storage:
  path: /tmp/contextd-test.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Watch.DebounceMs != 150 {
		t.Errorf("debounce_ms not applied: %d", cfg.Watch.DebounceMs)
	}
	// Unset fields keep defaults.
	if cfg.Watch.MarkTTLSeconds != 15 {
		t.Errorf("mark_ttl_seconds default lost: %d", cfg.Watch.MarkTTLSeconds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }},
		{"negative ttl", func(c *Config) { c.Watch.MarkTTLSeconds = -5 }},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"file output without path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }},
		{"future version", func(c *Config) { c.Version = Version + 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestValidationErrorsJoin(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = ""
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected failure")
	}
	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(errs) != 2 {
		t.Errorf("expected both errors reported, got %v", errs)
	}
}
