// Package conn manages saved connections: YAML persistence, the secret
// store for passwords, lazy connection pools, and the Executor that runs
// session SQL against those pools.
package conn

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rowboat-dev/rowboat/pkg/adapter"
)

// Connection is one saved database connection. The password is never stored
// here; it lives in the secret store keyed by ID.
type Connection struct {
	ID       string            `koanf:"id" json:"id"`
	Name     string            `koanf:"name" json:"name"`
	Type     string            `koanf:"type" json:"type"`
	Host     string            `koanf:"host" json:"host,omitempty"`
	Port     int               `koanf:"port" json:"port,omitempty"`
	Database string            `koanf:"database" json:"database,omitempty"`
	Username string            `koanf:"username" json:"username,omitempty"`
	Path     string            `koanf:"path" json:"path,omitempty"`
	Options  map[string]string `koanf:"options" json:"options,omitempty"`
}

// AdapterConfig builds the adapter config for this connection. A non-empty
// database overrides the connection's own, which is how sibling databases on
// the same server are reached.
func (c Connection) AdapterConfig(password, database string) adapter.Config {
	cfg := adapter.Config{
		Type:     c.Type,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.Username,
		Password: password,
		Path:     c.Path,
		Options:  c.Options,
	}
	if database != "" {
		cfg.Database = database
	}
	return cfg
}

type record struct {
	conn Connection
	path string
}

// Registry loads and persists connections as individual YAML files in one
// directory, one file per connection.
type Registry struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	records map[string]record
}

// NewRegistry creates a registry over dir. If logger is nil, a discard
// logger is used. Call Load before reading.
func NewRegistry(dir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		dir:     dir,
		logger:  logger,
		records: make(map[string]record),
	}
}

// Dir returns the directory the registry persists into.
func (r *Registry) Dir() string { return r.dir }

// Load re-reads every connection file in the directory, replacing the
// in-memory set. Files that fail to parse are skipped with a warning so one
// bad file cannot take down the whole registry.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.mu.Lock()
			r.records = make(map[string]record)
			r.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read connections directory: %w", err)
	}

	records := make(map[string]record)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		conn, err := readConnectionFile(path)
		if err != nil {
			r.logger.Warn("skipping unreadable connection file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		records[conn.ID] = record{conn: conn, path: path}
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()

	r.logger.Debug("connections loaded", slog.Int("count", len(records)))
	return nil
}

func readConnectionFile(path string) (Connection, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Connection{}, fmt.Errorf("failed to parse connection file: %w", err)
	}
	var conn Connection
	if err := k.Unmarshal("", &conn); err != nil {
		return Connection{}, fmt.Errorf("failed to unmarshal connection: %w", err)
	}
	if conn.ID == "" {
		return Connection{}, fmt.Errorf("connection file %s has no id", filepath.Base(path))
	}
	if conn.Type == "" {
		return Connection{}, fmt.Errorf("connection %q has no type", conn.Name)
	}
	return conn, nil
}

// List returns all connections sorted case-insensitively by name.
func (r *Registry) List() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.conn)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Get returns the connection with the given ID.
func (r *Registry) Get(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec.conn, ok
}

// FindByName returns the connection with the given name (exact,
// case-insensitive).
func (r *Registry) FindByName(name string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if strings.EqualFold(rec.conn.Name, name) {
			return rec.conn, true
		}
	}
	return Connection{}, false
}

// Save persists a connection to its own YAML file. A connection without an
// ID is assigned one. The filename derives from the connection name; the ID
// suffix keeps same-named connections from clobbering each other.
func (r *Registry) Save(conn Connection) (Connection, error) {
	if conn.Name == "" {
		return Connection{}, fmt.Errorf("connection name is required")
	}
	if conn.Type == "" {
		return Connection{}, fmt.Errorf("connection type is required")
	}
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return Connection{}, fmt.Errorf("failed to create connections directory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.dir, connectionFileName(conn))
	if prev, ok := r.records[conn.ID]; ok && prev.path != path {
		// Renamed: the file follows the name.
		if err := os.Remove(prev.path); err != nil && !os.IsNotExist(err) {
			return Connection{}, fmt.Errorf("failed to remove old connection file: %w", err)
		}
	}

	data, err := yaml.Parser().Marshal(connectionMap(conn))
	if err != nil {
		return Connection{}, fmt.Errorf("failed to marshal connection: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Connection{}, fmt.Errorf("failed to write connection file: %w", err)
	}

	r.records[conn.ID] = record{conn: conn, path: path}
	r.logger.Debug("connection saved", slog.String("id", conn.ID), slog.String("name", conn.Name))
	return conn, nil
}

// Remove deletes a connection and its file.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("no connection with id %q", id)
	}
	if err := os.Remove(rec.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove connection file: %w", err)
	}
	delete(r.records, id)
	return nil
}

// connectionMap flattens a connection for YAML marshalling, omitting empty
// fields so the files stay small and hand-editable.
func connectionMap(c Connection) map[string]any {
	m := map[string]any{
		"id":   c.ID,
		"name": c.Name,
		"type": c.Type,
	}
	if c.Host != "" {
		m["host"] = c.Host
	}
	if c.Port != 0 {
		m["port"] = c.Port
	}
	if c.Database != "" {
		m["database"] = c.Database
	}
	if c.Username != "" {
		m["username"] = c.Username
	}
	if c.Path != "" {
		m["path"] = c.Path
	}
	if len(c.Options) > 0 {
		m["options"] = c.Options
	}
	return m
}

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9-]+`)

// connectionFileName derives a stable filename from the connection's name
// and a short ID suffix.
func connectionFileName(c Connection) string {
	base := unsafeFileChars.ReplaceAllString(strings.ToLower(c.Name), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "connection"
	}
	suffix := c.ID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return base + "-" + suffix + ".yaml"
}
