// Package config loads and saves deskmux runtime configuration as YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond
	// maxValidPort is the highest TCP/UDP port number. Port 0 is valid and
	// means "OS auto-assign".
	maxValidPort = 65535
)

// userConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures.
var userConfigDirFn = os.UserConfigDir

// Config is deskmux runtime configuration.
type Config struct {
	// Shell is the command launched for new backend sessions. Empty means
	// the platform default ($SHELL, /bin/sh).
	Shell string `yaml:"shell" json:"shell"`
	// DefaultSessionDir is the working directory for new sessions. Empty
	// string means "use the application launch directory".
	DefaultSessionDir string `yaml:"default_session_dir,omitempty" json:"default_session_dir,omitempty"`
	// WebSocketPort is the port for the local WebSocket event server.
	// 0 (default) lets the OS assign an available port.
	WebSocketPort int `yaml:"websocket_port" json:"websocket_port"`
	// AutosaveDebounceMS is the delay before a workspace change is written
	// to the store, coalescing bursts of layout edits into one save.
	AutosaveDebounceMS int `yaml:"autosave_debounce_ms" json:"autosave_debounce_ms"`
	// MaxTabs caps the number of simultaneously open tabs. 0 means no cap.
	MaxTabs int `yaml:"max_tabs,omitempty" json:"max_tabs,omitempty"`
	// DefaultPreset is the layout preset used by "open sessions tiled"
	// when the caller does not name one.
	DefaultPreset string `yaml:"default_preset,omitempty" json:"default_preset,omitempty"`
	// SessionEnv contains extra environment variables applied to backend
	// sessions.
	SessionEnv map[string]string `yaml:"session_env,omitempty" json:"session_env,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		AutosaveDebounceMS: 250,
		DefaultPreset:      "tiled",
	}
}

// DefaultPath returns the default config file location under the user config
// directory, falling back to the working directory when it cannot be
// resolved.
func DefaultPath() string {
	dir, err := userConfigDirFn()
	if err != nil {
		slog.Warn("[CONFIG] user config dir unavailable, using working directory", "error", err)
		return "deskmux.yaml"
	}
	return filepath.Join(dir, "deskmux", "config.yaml")
}

// Load reads and validates the config at path. Invalid values are normalized
// and reported as warnings instead of failing the load: the app always
// starts.
func Load(path string) (Config, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxConfigFileBytes+1))
	if err != nil {
		return Config{}, nil, fmt.Errorf("read config: %w", err)
	}
	if int64(len(raw)) > maxConfigFileBytes {
		return Config{}, nil, fmt.Errorf("config file exceeds %d bytes", maxConfigFileBytes)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("parse config: %w", err)
	}
	warnings := cfg.Normalize()
	return cfg, warnings, nil
}

// EnsureFile loads the config at path, creating it with defaults when
// missing.
func EnsureFile(path string) (Config, []string, error) {
	cfg, warnings, err := Load(path)
	if err == nil {
		return cfg, warnings, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil, err
	}
	cfg = DefaultConfig()
	if saveErr := Save(path, cfg); saveErr != nil {
		return cfg, nil, fmt.Errorf("create default config: %w", saveErr)
	}
	return cfg, nil, nil
}

// Save writes cfg to path atomically: marshal to a temp file in the target
// directory, then rename over the destination with retry (Windows can hold a
// transient lock on the destination).
func Save(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	removeTemp := true
	defer func() {
		if removeTemp {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}

	var renameErr error
	for attempt := 1; attempt <= maxRenameRetry; attempt++ {
		renameErr = os.Rename(tmpPath, path)
		if renameErr == nil {
			removeTemp = false
			return nil
		}
		time.Sleep(renameRetryBaseDelay * time.Duration(attempt))
	}
	return fmt.Errorf("replace config after %d attempts: %w", maxRenameRetry, renameErr)
}

// Normalize clamps out-of-range values back to defaults and returns one
// warning per correction.
func (c *Config) Normalize() []string {
	var warnings []string
	if c.WebSocketPort < 0 || c.WebSocketPort > maxValidPort {
		warnings = append(warnings, fmt.Sprintf("websocket_port %d out of range, using 0 (auto-assign)", c.WebSocketPort))
		c.WebSocketPort = 0
	}
	if c.AutosaveDebounceMS < 0 {
		warnings = append(warnings, fmt.Sprintf("autosave_debounce_ms %d is negative, using default", c.AutosaveDebounceMS))
		c.AutosaveDebounceMS = DefaultConfig().AutosaveDebounceMS
	}
	if c.MaxTabs < 0 {
		warnings = append(warnings, fmt.Sprintf("max_tabs %d is negative, using 0 (no cap)", c.MaxTabs))
		c.MaxTabs = 0
	}
	switch c.DefaultPreset {
	case "", "even-horizontal", "even-vertical", "main-vertical", "main-horizontal", "tiled":
	default:
		warnings = append(warnings, fmt.Sprintf("default_preset %q is unknown, using tiled", c.DefaultPreset))
		c.DefaultPreset = "tiled"
	}
	return warnings
}

// AutosaveDebounce returns the autosave delay as a duration.
func (c Config) AutosaveDebounce() time.Duration {
	return time.Duration(c.AutosaveDebounceMS) * time.Millisecond
}
