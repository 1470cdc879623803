// Package config loads rowboat's configuration from defaults, a YAML file,
// environment variables, and CLI flags, in that order of precedence.
package config

import (
	"path/filepath"
	"time"
)

// Config is the resolved application configuration.
type Config struct {
	// ConfigDir is where connections, secrets and history live. Defaults to
	// ~/.config/rowboat.
	ConfigDir string `koanf:"config_dir"`

	// PageSize bounds every table page fetch.
	PageSize int `koanf:"page_size"`

	// DebounceMs is the filter-typing quiet window in milliseconds.
	DebounceMs int `koanf:"debounce_ms"`

	Log    LogConfig    `koanf:"log"`
	Server ServerConfig `koanf:"server"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "text" or "json".
	Format string `koanf:"format"`
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	Addr string `koanf:"addr"`
	// ShutdownTimeoutSec bounds graceful shutdown.
	ShutdownTimeoutSec int `koanf:"shutdown_timeout_sec"`
}

// ConnectionsDir is where connection YAML files live.
func (c *Config) ConnectionsDir() string {
	return filepath.Join(c.ConfigDir, "connections")
}

// SecretsPath is the password store file.
func (c *Config) SecretsPath() string {
	return filepath.Join(c.ConfigDir, "secrets.json")
}

// HistoryPath is the query history database file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.ConfigDir, "history.db")
}

// DebounceWindow converts the configured quiet window to a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// ShutdownTimeout converts the configured shutdown bound to a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}
