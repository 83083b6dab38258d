package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hexe.yaml")
	if err := os.WriteFile(path, []byte("paths:\n  state_dir: /srv/hexe\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.StateDir != "/srv/hexe" {
		t.Fatalf("StateDir = %q, want /srv/hexe", cfg.Paths.StateDir)
	}
	if cfg.Paths.RuntimeDir == "" {
		t.Fatal("RuntimeDir should have a default")
	}
	if cfg.Session.DefaultShell == "" {
		t.Fatal("DefaultShell should have a default")
	}
	if cfg.Pod.BacklogBytes == 0 {
		t.Fatal("BacklogBytes should have a default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestInstanceNameEnvOverride(t *testing.T) {
	t.Setenv("HEXE_INSTANCE", "staging")
	cfg := Default()
	if cfg.Instance.Name != "staging" {
		t.Fatalf("Instance.Name = %q, want staging", cfg.Instance.Name)
	}
}

func TestDefaultInstanceName(t *testing.T) {
	t.Setenv("HEXE_INSTANCE", "")
	cfg := Default()
	if cfg.Instance.Name != "default" {
		t.Fatalf("Instance.Name = %q, want default", cfg.Instance.Name)
	}
}
