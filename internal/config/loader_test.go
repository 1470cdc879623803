package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.Equal(t, DefaultDebounceMs, cfg.DebounceMs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, 400*time.Millisecond, cfg.DebounceWindow())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rowboat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
page_size: 50
log:
  level: debug
server:
  addr: "0.0.0.0:9000"
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, DefaultDebounceMs, cfg.DebounceMs, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rowboat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 50\n"), 0o644))

	t.Setenv("ROWBOAT_PAGE_SIZE", "25")
	t.Setenv("ROWBOAT_LOG_LEVEL", "warn")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	t.Setenv("ROWBOAT_PAGE_SIZE", "25")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", 0, "")
	flags.String("log-level", "", "")
	flags.String("addr", "", "")
	require.NoError(t, flags.Parse([]string{"--page-size=10", "--log-level=error", "--addr=:7070"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_UnchangedFlagsIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", 999, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, cfg.PageSize, "flag defaults do not override config defaults")
}

func TestConfigDerivedPaths(t *testing.T) {
	cfg := &Config{ConfigDir: "/tmp/rb"}
	assert.Equal(t, filepath.Join("/tmp/rb", "connections"), cfg.ConnectionsDir())
	assert.Equal(t, filepath.Join("/tmp/rb", "secrets.json"), cfg.SecretsPath())
	assert.Equal(t, filepath.Join("/tmp/rb", "history.db"), cfg.HistoryPath())
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "rowboat"), DefaultConfigDir())
}
