// Package server exposes table sessions over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/rowboat-dev/rowboat/internal/conn"
	"github.com/rowboat-dev/rowboat/internal/history"
	"github.com/rowboat-dev/rowboat/internal/session"
	"github.com/rowboat-dev/rowboat/pkg/core"
)

// Executor is everything the HTTP layer needs from the SQL side: the
// session operations plus schema browsing. conn.Executor satisfies it.
type Executor interface {
	session.Executor
	ListDatabases(ctx context.Context, connectionID string) ([]string, error)
	ListSchemaObjects(ctx context.Context, connectionID, database string) ([]core.SchemaObject, error)
}

// Config holds the server's collaborators and settings.
type Config struct {
	Addr            string
	PageSize        int
	DebounceWindow  time.Duration
	ShutdownTimeout time.Duration

	Registry *conn.Registry
	Secrets  *conn.SecretStore
	Pools    *conn.Pools
	Executor Executor
	History  *history.Store

	Logger *slog.Logger
}

// Server is the rowboat HTTP server. It owns the open sessions; each session
// serializes its own operations internally, so handlers can run concurrently.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*openSession
}

type openSession struct {
	sess         *session.Session
	connectionID string
	database     string
	schema       string
	table        string
	cancel       context.CancelFunc
}

// New creates a server. If the config's logger is nil, a discard logger is
// used.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*openSession),
	}
}

// Serve starts the HTTP server and the connection-file watcher and blocks
// until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting server", slog.String("addr", s.cfg.Addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Registry != nil {
		eg.Go(func() error {
			return s.watchConnections(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		s.closeAllSessions()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/connections", s.handleListConnections)
		r.Post("/connections", s.handleAddConnection)
		r.Route("/connections/{id}", func(r chi.Router) {
			r.Delete("/", s.handleRemoveConnection)
			r.Post("/test", s.handleTestConnection)
			r.Get("/databases", s.handleListDatabases)
			r.Get("/objects", s.handleListObjects)
		})

		r.Post("/query", s.handleQuery)

		r.Get("/history", s.handleListHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/queries", s.handleListSavedQueries)
		r.Post("/queries", s.handleSaveQuery)
		r.Delete("/queries/{id}", s.handleDeleteSavedQuery)

		r.Post("/sessions", s.handleOpenSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionState)
			r.Delete("/", s.handleCloseSession)
			r.Post("/filter", s.handleSetFilter)
			r.Post("/sort", s.handleToggleSort)
			r.Post("/more", s.handleLoadMore)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/select", s.handleToggleSelect)
			r.Post("/cells", s.handleUpdateCell)
			r.Post("/rows", s.handleInsertRow)
			r.Delete("/rows", s.handleDeleteSelected)
		})
	})

	return r
}

func (s *Server) getSession(id string) (*openSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	os, ok := s.sessions[id]
	return os, ok
}

func (s *Server) closeAllSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, os := range s.sessions {
		os.sess.Close()
		os.cancel()
		delete(s.sessions, id)
	}
}
