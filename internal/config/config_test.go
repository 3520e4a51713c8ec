package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.ServerURL = "https://chat.example.com/api"
	cfg.ReconnectBaseMS = 1000
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ServerURL != "https://chat.example.com/api" {
		t.Errorf("ServerURL = %q, want https://chat.example.com/api", loaded.ServerURL)
	}
	if loaded.ReconnectBase() != time.Second {
		t.Errorf("ReconnectBase = %v, want 1s", loaded.ReconnectBase())
	}
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v, want defaults for missing file", err)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.PageSize)
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("ReconnectMaxAttempts = %d, want 5", cfg.ReconnectMaxAttempts)
	}
}

func TestLoadFloorsBadTuning(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	data := "reconnect_base_ms = 0\nreconnect_multiplier = 0.5\ntyping_expiry_ms = -1\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReconnectBaseMS != 2000 {
		t.Errorf("ReconnectBaseMS = %d, want floored to 2000", cfg.ReconnectBaseMS)
	}
	if cfg.ReconnectMultiplier != 1.5 {
		t.Errorf("ReconnectMultiplier = %v, want floored to 1.5", cfg.ReconnectMultiplier)
	}
	if cfg.TypingExpiry() != 5*time.Second {
		t.Errorf("TypingExpiry = %v, want 5s", cfg.TypingExpiry())
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
