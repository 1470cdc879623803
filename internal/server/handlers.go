package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rowboat-dev/rowboat/internal/conn"
	"github.com/rowboat-dev/rowboat/internal/history"
	"github.com/rowboat-dev/rowboat/internal/session"
	"github.com/rowboat-dev/rowboat/pkg/core"
	"github.com/rowboat-dev/rowboat/pkg/dialect"
	_ "github.com/rowboat-dev/rowboat/pkg/dialects/duckdb"   // register dialect
	_ "github.com/rowboat-dev/rowboat/pkg/dialects/postgres" // register dialect
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

// writeError maps the error taxonomy onto HTTP statuses: local validation is
// the client's fault, connectivity failures are upstream, everything else is
// a bad statement.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var (
		verr *core.ValidationError
		cerr *core.ConnectivityError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &cerr):
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// ---- connections ----

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Registry.List())
}

type addConnectionRequest struct {
	conn.Connection
	Password string `json:"password,omitempty"`
}

func (s *Server) handleAddConnection(w http.ResponseWriter, r *http.Request) {
	var req addConnectionRequest
	if !s.decode(w, r, &req) {
		return
	}

	saved, err := s.cfg.Registry.Save(req.Connection)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Password != "" {
		if err := s.cfg.Secrets.Set(saved.ID, req.Password); err != nil {
			s.writeError(w, err)
			return
		}
	}
	// A changed definition invalidates any pools opened under the old one.
	s.cfg.Pools.CloseConnection(saved.ID)
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.cfg.Registry.Remove(id); err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.cfg.Pools.CloseConnection(id)
	if err := s.cfg.Secrets.Delete(id); err != nil {
		s.logger.Warn("failed to delete secret", slog.String("error", err.Error()))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.cfg.Pools.Connect(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	names, err := s.cfg.Executor.ListDatabases(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	objects, err := s.cfg.Executor.ListSchemaObjects(r.Context(),
		chi.URLParam(r, "id"), r.URL.Query().Get("database"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, objects)
}

// ---- ad-hoc query ----

type queryRequest struct {
	ConnectionID string `json:"connection_id"`
	Database     string `json:"database,omitempty"`
	SQL          string `json:"sql"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		s.writeError(w, core.Validationf("sql is required"))
		return
	}

	res, err := s.cfg.Executor.ExecuteQuery(r.Context(), req.ConnectionID, req.Database, req.SQL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.cfg.History != nil {
		if err := s.cfg.History.Record(r.Context(), history.Entry{
			ConnectionID: req.ConnectionID,
			Database:     req.Database,
			SQL:          req.SQL,
			RowCount:     res.RowCount,
			DurationMs:   res.ExecutionTimeMs,
		}); err != nil {
			s.logger.Warn("failed to record history", slog.String("error", err.Error()))
		}
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ---- history and saved queries ----

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.cfg.History.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.History.Clear(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSavedQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := s.cfg.History.ListQueries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if queries == nil {
		queries = []history.SavedQuery{}
	}
	s.writeJSON(w, http.StatusOK, queries)
}

func (s *Server) handleSaveQuery(w http.ResponseWriter, r *http.Request) {
	var q history.SavedQuery
	if !s.decode(w, r, &q) {
		return
	}
	saved, err := s.cfg.History.SaveQuery(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteSavedQuery(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.History.DeleteQuery(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- sessions ----

type openSessionRequest struct {
	ConnectionID string `json:"connection_id"`
	Database     string `json:"database,omitempty"`
	Schema       string `json:"schema,omitempty"`
	Table        string `json:"table"`
}

type sessionResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Table == "" {
		s.writeError(w, core.Validationf("table is required"))
		return
	}

	connection, ok := s.cfg.Registry.Get(req.ConnectionID)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such connection"})
		return
	}
	d, ok := dialect.Get(connection.Type)
	if !ok {
		s.writeError(w, core.Validationf("no dialect for connection type %q", connection.Type))
		return
	}
	schema := req.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}

	// The session outlives this request; debounced fetches run under its
	// own context until the session is closed.
	sessCtx, cancel := context.WithCancel(context.Background())
	sess := session.New(s.cfg.Executor, d, session.Config{
		ConnectionID:   req.ConnectionID,
		Database:       req.Database,
		Schema:         schema,
		Table:          req.Table,
		PageSize:       s.cfg.PageSize,
		DebounceWindow: s.cfg.DebounceWindow,
		Logger:         s.logger,
	})
	if err := sess.Open(sessCtx); err != nil {
		cancel()
		s.writeError(w, err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &openSession{
		sess:         sess,
		connectionID: req.ConnectionID,
		database:     req.Database,
		schema:       schema,
		table:        req.Table,
		cancel:       cancel,
	}
	s.mu.Unlock()

	s.logger.Info("session opened",
		slog.String("session", id),
		slog.String("table", schema+"."+req.Table))
	s.writeJSON(w, http.StatusCreated, sessionResponse{ID: id, State: sess.Snapshot()})
}

func (s *Server) withSession(w http.ResponseWriter, r *http.Request) (*openSession, bool) {
	id := chi.URLParam(r, "id")
	open, ok := s.getSession(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such session"})
		return nil, false
	}
	return open, true
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	open, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such session"})
		return
	}
	open.sess.Close()
	open.cancel()
	w.WriteHeader(http.StatusNoContent)
}

type filterRequest struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !s.decode(w, r, &req) {
		return
	}
	open.sess.SetFilter(req.Column, req.Value)
	// The refetch is debounced; the returned state reflects the recorded
	// intent, not the eventual result.
	s.writeJSON(w, http.StatusAccepted, open.sess.Snapshot())
}

type sortRequest struct {
	Column string `json:"column"`
}

func (s *Server) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	var req sortRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := open.sess.ToggleSort(r.Context(), req.Column); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	if err := open.sess.LoadMore(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	if err := open.sess.Refresh(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}

type selectRequest struct {
	Identity string `json:"identity"`
}

func (s *Server) handleToggleSelect(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := open.sess.ToggleSelect(req.Identity); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}

type updateCellRequest struct {
	Identity string `json:"identity"`
	Column   string `json:"column"`
	Value    string `json:"value"`
}

func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	var req updateCellRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := open.sess.UpdateCell(r.Context(), req.Identity, req.Column, req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}

type insertRequest struct {
	Values map[string]string `json:"values"`
}

func (s *Server) handleInsertRow(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	var req insertRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := open.sess.Insert(r.Context(), req.Values); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	open, ok := s.withSession(w, r)
	if !ok {
		return
	}
	if err := open.sess.DeleteSelected(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, open.sess.Snapshot())
}
