package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRowboat(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConnectionsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ROWBOAT_CONFIG_DIR", dir)

	out, err := runRowboat(t, "connections", "add", "local",
		"--type", "postgres", "--host", "localhost", "--database", "app",
		"--username", "app", "--password", "secret")
	require.NoError(t, err, out)
	assert.Contains(t, out, `Added connection "local"`)

	// The password lands in the secret store, never in the connection file.
	files, err := filepath.Glob(filepath.Join(dir, "connections", "*.yaml"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	out, err = runRowboat(t, "connections", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "local")
	assert.Contains(t, out, "postgres")
	assert.NotContains(t, out, "secret")

	out, err = runRowboat(t, "connections", "remove", "local")
	require.NoError(t, err, out)

	out, err = runRowboat(t, "connections", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No connections configured")
}

func TestConnectionsRemoveUnknown(t *testing.T) {
	t.Setenv("ROWBOAT_CONFIG_DIR", t.TempDir())

	_, err := runRowboat(t, "connections", "remove", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no connection named")
}

func TestQueryUnknownConnection(t *testing.T) {
	t.Setenv("ROWBOAT_CONFIG_DIR", t.TempDir())

	_, err := runRowboat(t, "query", "ghost", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no connection named")
}

func TestHistoryListEmpty(t *testing.T) {
	t.Setenv("ROWBOAT_CONFIG_DIR", t.TempDir())

	out, err := runRowboat(t, "history", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "history is empty")
}

func TestSavedQueriesRoundTrip(t *testing.T) {
	t.Setenv("ROWBOAT_CONFIG_DIR", t.TempDir())

	out, err := runRowboat(t, "queries", "save", "top-users",
		"SELECT * FROM users ORDER BY score DESC LIMIT 10")
	require.NoError(t, err, out)
	assert.Contains(t, out, `Saved query "top-users"`)

	out, err = runRowboat(t, "queries", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "top-users")
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("ROWBOAT_CONFIG_DIR", t.TempDir())

	_, err := runRowboat(t, "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}
