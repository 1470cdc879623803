package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowboat-dev/rowboat/internal/conn"
	"github.com/rowboat-dev/rowboat/internal/history"
	"github.com/rowboat-dev/rowboat/internal/session"
	"github.com/rowboat-dev/rowboat/internal/testutil"
	"github.com/rowboat-dev/rowboat/pkg/core"
)

// fakeExecutor serves canned results for the HTTP tests.
type fakeExecutor struct {
	columns []core.Column
	pk      []string
	page    *core.QueryResult
	count   int64

	updates int
	deletes int
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, _, _, sqlText string) (*core.QueryResult, error) {
	if strings.HasPrefix(sqlText, "SELECT COUNT") {
		return &core.QueryResult{
			Columns:  []string{"count"},
			Rows:     []core.Row{{core.Number(float64(f.count))}},
			RowCount: 1,
		}, nil
	}
	return f.page, nil
}

func (f *fakeExecutor) GetColumns(context.Context, string, string, string, string) ([]core.Column, error) {
	return f.columns, nil
}

func (f *fakeExecutor) GetPrimaryKeyColumns(context.Context, string, string, string, string) ([]string, error) {
	return f.pk, nil
}

func (f *fakeExecutor) InsertRow(context.Context, string, string, string, string, []string, []core.Scalar, []string) error {
	return nil
}

func (f *fakeExecutor) DeleteRows(context.Context, string, string, string, string, []string, [][]core.Scalar) error {
	f.deletes++
	return nil
}

func (f *fakeExecutor) UpdateCell(context.Context, string, string, string, string, string, []string, []core.Scalar, core.Scalar) error {
	f.updates++
	return nil
}

func (f *fakeExecutor) ListDatabases(context.Context, string) ([]string, error) {
	return []string{"app", "postgres"}, nil
}

func (f *fakeExecutor) ListSchemaObjects(context.Context, string, string) ([]core.SchemaObject, error) {
	return []core.SchemaObject{{Schema: "public", Name: "users", ObjectType: "table"}}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeExecutor, http.Handler) {
	t.Helper()

	dir := t.TempDir()
	logger := testutil.NewTestLogger(t)
	registry := conn.NewRegistry(filepath.Join(dir, "connections"), logger)
	secrets := conn.NewSecretStore(filepath.Join(dir, "secrets.json"))
	pools := conn.NewPools(registry, secrets, logger)

	hist, err := history.Open(filepath.Join(dir, "history.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	exec := &fakeExecutor{
		columns: []core.Column{
			{Name: "id", DataType: "integer", PrimaryKey: true},
			{Name: "name", DataType: "text", Nullable: true},
		},
		pk: []string{"id"},
		page: &core.QueryResult{
			Columns: []string{"id", "name"},
			Rows: []core.Row{
				{core.Number(5), core.String("Alice")},
				{core.Number(9), core.String("Mallory")},
			},
			RowCount: 2,
		},
		count: 40,
	}

	srv := New(Config{
		Addr:           "127.0.0.1:0",
		PageSize:       100,
		DebounceWindow: 5 * time.Millisecond,
		Registry:       registry,
		Secrets:        secrets,
		Pools:          pools,
		Executor:       exec,
		History:        hist,
		Logger:         logger,
	})
	t.Cleanup(srv.closeAllSessions)
	return srv, exec, srv.routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func addTestConnection(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/connections", map[string]any{
		"name": "local", "type": "postgres", "host": "localhost", "database": "app",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved conn.Connection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	return saved.ID
}

func openTestSession(t *testing.T, h http.Handler, connID string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]any{
		"connection_id": connID, "table": "users",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestServer_Connections(t *testing.T) {
	_, _, h := newTestServer(t)

	id := addTestConnection(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []conn.Connection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "local", list[0].Name)

	rec = doJSON(t, h, http.MethodGet, "/api/connections/"+id+"/databases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["app","postgres"]`, rec.Body.String())

	rec = doJSON(t, h, http.MethodDelete, "/api/connections/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/connections/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SessionLifecycle(t *testing.T) {
	_, exec, h := newTestServer(t)
	connID := addTestConnection(t, h)
	sessID := openTestSession(t, h, connID)

	rec := doJSON(t, h, http.MethodGet, "/api/sessions/"+sessID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st session.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Len(t, st.Rows, 2)
	require.NotNil(t, st.TotalCount)
	assert.Equal(t, int64(40), *st.TotalCount)
	assert.True(t, st.Editable)

	// A filter edit is accepted, not applied synchronously.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/sessions/%s/filter", sessID),
		filterRequest{Column: "name", Value: "ali"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/sessions/%s/sort", sessID),
		sortRequest{Column: "id"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.NotNil(t, st.Sort)
	assert.Equal(t, "id", st.Sort.Column)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/sessions/%s/cells", sessID),
		updateCellRequest{Identity: "5", Column: "name", Value: "Bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, exec.updates)

	rec = doJSON(t, h, http.MethodDelete, "/api/sessions/"+sessID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+sessID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SelectAndDelete(t *testing.T) {
	_, exec, h := newTestServer(t)
	connID := addTestConnection(t, h)
	sessID := openTestSession(t, h, connID)

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/sessions/%s/select", sessID),
		selectRequest{Identity: "5"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/sessions/%s/rows", sessID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, exec.deletes)

	var st session.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Len(t, st.Rows, 1)
	require.NotNil(t, st.TotalCount)
	assert.Equal(t, int64(39), *st.TotalCount)
}

func TestServer_DeleteNothingSelectedIsUnprocessable(t *testing.T) {
	_, _, h := newTestServer(t)
	connID := addTestConnection(t, h)
	sessID := openTestSession(t, h, connID)

	rec := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/sessions/%s/rows", sessID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_OpenSessionValidation(t *testing.T) {
	_, _, h := newTestServer(t)
	connID := addTestConnection(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]any{
		"connection_id": connID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "missing table")

	rec = doJSON(t, h, http.MethodPost, "/api/sessions", map[string]any{
		"connection_id": "nope", "table": "users",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown connection")
}

func TestServer_QueryRecordsHistory(t *testing.T) {
	_, _, h := newTestServer(t)
	connID := addTestConnection(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/query",
		queryRequest{ConnectionID: connID, SQL: "SELECT * FROM users"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT * FROM users", entries[0].SQL)

	rec = doJSON(t, h, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_SavedQueries(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/queries",
		history.SavedQuery{Name: "users", SQL: "SELECT * FROM users"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved history.SavedQuery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	rec = doJSON(t, h, http.MethodGet, "/api/queries", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/queries/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
