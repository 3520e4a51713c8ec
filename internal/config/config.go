package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.chatflow/config.toml.
// Interval fields are in milliseconds to match the server's conventions.
type Config struct {
	ServerURL string `toml:"server_url"`
	WSURL     string `toml:"ws_url"`
	DataDir   string `toml:"data_dir"`

	PageSize int `toml:"page_size"`

	ReconnectBaseMS      int64   `toml:"reconnect_base_ms"`
	ReconnectMaxMS       int64   `toml:"reconnect_max_ms"`
	ReconnectMaxAttempts int     `toml:"reconnect_max_attempts"`
	ReconnectMultiplier  float64 `toml:"reconnect_multiplier"`

	HeartbeatMS      int64 `toml:"heartbeat_ms"`
	TypingDebounceMS int64 `toml:"typing_debounce_ms"`
	TypingExpiryMS   int64 `toml:"typing_expiry_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServerURL:            "http://localhost:8080",
		WSURL:                "ws://localhost:8080/ws",
		DataDir:              defaultDataDir(),
		PageSize:             50,
		ReconnectBaseMS:      2000,
		ReconnectMaxMS:       30000,
		ReconnectMaxAttempts: 5,
		ReconnectMultiplier:  1.5,
		HeartbeatMS:          25000,
		TypingDebounceMS:     2000,
		TypingExpiryMS:       5000,
	}
}

// Load reads config from the given path, filling unset fields with defaults.
// A missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyFloor()
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// applyFloor replaces zero or negative tuning values with defaults so a
// partially written file cannot disable reconnection or heartbeats.
func (c *Config) applyFloor() {
	d := Default()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.ReconnectBaseMS <= 0 {
		c.ReconnectBaseMS = d.ReconnectBaseMS
	}
	if c.ReconnectMaxMS <= 0 {
		c.ReconnectMaxMS = d.ReconnectMaxMS
	}
	if c.ReconnectMaxAttempts <= 0 {
		c.ReconnectMaxAttempts = d.ReconnectMaxAttempts
	}
	if c.ReconnectMultiplier <= 1 {
		c.ReconnectMultiplier = d.ReconnectMultiplier
	}
	if c.HeartbeatMS <= 0 {
		c.HeartbeatMS = d.HeartbeatMS
	}
	if c.TypingDebounceMS <= 0 {
		c.TypingDebounceMS = d.TypingDebounceMS
	}
	if c.TypingExpiryMS <= 0 {
		c.TypingExpiryMS = d.TypingExpiryMS
	}
}

// ReconnectBase returns the initial reconnect delay.
func (c *Config) ReconnectBase() time.Duration {
	return time.Duration(c.ReconnectBaseMS) * time.Millisecond
}

// ReconnectMax returns the reconnect delay cap.
func (c *Config) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMS) * time.Millisecond
}

// Heartbeat returns the outbound ping interval.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMS) * time.Millisecond
}

// TypingDebounce returns the local outbound typing window.
func (c *Config) TypingDebounce() time.Duration {
	return time.Duration(c.TypingDebounceMS) * time.Millisecond
}

// TypingExpiry returns the inbound typing self-expiry window.
func (c *Config) TypingExpiry() time.Duration {
	return time.Duration(c.TypingExpiryMS) * time.Millisecond
}

// DefaultPath returns ~/.chatflow/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".chatflow", "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".chatflow")
}
