package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default configuration values.
const (
	DefaultPageSize           = 100
	DefaultDebounceMs         = 400
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultServerAddr         = "127.0.0.1:8090"
	DefaultShutdownTimeoutSec = 10
)

// DefaultConfigDir returns ~/.config/rowboat, honoring XDG_CONFIG_HOME.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rowboat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rowboat"
	}
	return filepath.Join(home, ".config", "rowboat")
}

// findConfigFile picks the config file to use.
// Priority: explicit path > ./rowboat.yaml > ./rowboat.yml > <config_dir>/rowboat.yaml
func findConfigFile(explicit, configDir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"rowboat.yaml", "rowboat.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	candidate := filepath.Join(configDir, "rowboat.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"config_dir":                  DefaultConfigDir(),
		"page_size":                   DefaultPageSize,
		"debounce_ms":                 DefaultDebounceMs,
		"log.level":                   DefaultLogLevel,
		"log.format":                  DefaultLogFormat,
		"server.addr":                 DefaultServerAddr,
		"server.shutdown_timeout_sec": DefaultShutdownTimeoutSec,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if used := findConfigFile(cfgFile, DefaultConfigDir()); used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment variables: ROWBOAT_LOG_LEVEL -> log.level,
	// ROWBOAT_PAGE_SIZE -> page_size. Only the section prefixes log_ and
	// server_ map to nesting; everything else stays a flat key.
	if err := k.Load(env.Provider("ROWBOAT_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "ROWBOAT_"))
		for _, section := range []string{"log_", "server_"} {
			if strings.HasPrefix(key, section) {
				return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
			}
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "log_level":
				return "log.level", posflag.FlagVal(flags, f)
			case "log_format":
				return "log.format", posflag.FlagVal(flags, f)
			case "addr":
				return "server.addr", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}
