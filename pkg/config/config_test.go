package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
flow_file: flows/signup.yaml
registration:
  count: 10
  interval_seconds: 30
  max_retries: 2
  domain: example.com
  password: hunter2
verification:
  continue_pattern: "button.go"
  poll_interval_seconds: 3
  timeout_seconds: 120
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.FlowFile != "flows/signup.yaml" {
		t.Errorf("FlowFile = %q", cfg.FlowFile)
	}
	if cfg.Registration.Count != 10 || cfg.Registration.Domain != "example.com" {
		t.Errorf("Registration = %+v", cfg.Registration)
	}
	if cfg.Interval() != 30*time.Second {
		t.Errorf("Interval() = %v, want 30s", cfg.Interval())
	}
	if cfg.PollInterval() != 3*time.Second || cfg.PollBudget() != 2*time.Minute {
		t.Errorf("poll settings = %v/%v", cfg.PollInterval(), cfg.PollBudget())
	}

	// The raw document backs {config.*} lookups, including nesting.
	scope := cfg.Scope()
	reg, ok := scope["registration"].(map[string]any)
	if !ok {
		t.Fatalf("scope registration = %T", scope["registration"])
	}
	if reg["domain"] != "example.com" {
		t.Errorf("scope registration.domain = %v", reg["domain"])
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Verification.PollIntervalSeconds != 2 || cfg.Verification.TimeoutSeconds != 90 {
		t.Errorf("defaults = %+v", cfg.Verification)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromDirMissing(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromDir() error: %v", err)
	}
	if cfg.Registration.Count != 1 {
		t.Errorf("missing config did not fall back to defaults: %+v", cfg.Registration)
	}
}

func TestValidate(t *testing.T) {
	bad := []string{
		"registration:\n  count: -1\n",
		"registration:\n  interval_seconds: -5\n",
		"verification:\n  poll_interval_seconds: 0\n",
		"verification:\n  timeout_seconds: -1\n",
	}
	for _, content := range bad {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%q) succeeded, want error", content)
		}
	}
}
