// Package session implements the table session engine: per-table browsing
// state (filter, sort, selection, cached page) reconciled against inserts,
// updates and deletes without a server-side cursor or transaction.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rowboat-dev/rowboat/internal/query"
	"github.com/rowboat-dev/rowboat/pkg/core"
	"github.com/rowboat-dev/rowboat/pkg/dialect"
)

// DefaultPageSize is the page size used when the config leaves it zero.
const DefaultPageSize = 100

// Config describes the table a session browses.
type Config struct {
	ConnectionID string
	Database     string
	Schema       string
	Table        string

	// PageSize bounds every page select. Zero selects DefaultPageSize.
	PageSize int

	// DebounceWindow overrides the filter-edit quiet period. Zero selects
	// DefaultDebounceWindow.
	DebounceWindow time.Duration

	// OnChange, when set, is invoked after every observable state change
	// (fetch commit, fetch failure, local mutation). It is called without
	// the session lock held.
	OnChange func()

	Logger *slog.Logger
}

// State is an immutable snapshot of a session's observable state.
type State struct {
	Columns    []core.Column     `json:"columns"`
	PrimaryKey []string          `json:"primary_key"`
	Rows       []core.Row        `json:"rows"`
	TotalCount *int64            `json:"total_count"`
	HasMore    bool              `json:"has_more"`
	Filter     query.FilterSpec  `json:"filter,omitempty"`
	Sort       *query.Sort       `json:"sort,omitempty"`
	Selection  map[string]bool   `json:"selection,omitempty"`
	Editable   bool              `json:"editable"`
	Loading    bool              `json:"loading"`
	FetchError string            `json:"fetch_error,omitempty"`
	Generation uint64            `json:"generation"`
}

// Session is the top-level orchestrator for one open table. Each open table
// owns its own Session exclusively; sessions coexist side by side and share
// nothing.
type Session struct {
	cfg      Config
	exec     Executor
	compiler *query.Compiler
	seq      *Sequencer
	logger   *slog.Logger

	// ctx is the session's lifetime context, captured at Open. Debounced
	// fetches run under it after the opening call has returned.
	ctx context.Context

	mu        sync.Mutex
	columns   []core.Column
	names     []string
	pk        []string
	filter    query.FilterSpec
	sort      *query.Sort
	store     *PageStore
	selection map[string]struct{}
	loading   bool
	fetchErr  error
	opened    bool
}

// New creates a session for the given table. Open must be called before any
// other operation.
func New(exec Executor, d *dialect.Dialect, cfg Config) *Session {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		cfg:       cfg,
		exec:      exec,
		compiler:  query.NewCompiler(d),
		seq:       NewSequencer(cfg.DebounceWindow),
		logger:    logger,
		selection: make(map[string]struct{}),
	}
}

// Open fetches the table's column metadata and primary key, then loads the
// first page. The context is retained as the session's lifetime context for
// debounced fetches.
func (s *Session) Open(ctx context.Context) error {
	columns, err := s.exec.GetColumns(ctx, s.cfg.ConnectionID, s.cfg.Database, s.cfg.Schema, s.cfg.Table)
	if err != nil {
		return fmt.Errorf("failed to load columns for %s.%s: %w", s.cfg.Schema, s.cfg.Table, err)
	}
	if len(columns) == 0 {
		return core.Validationf("table %s.%s has no columns", s.cfg.Schema, s.cfg.Table)
	}
	pk, err := s.exec.GetPrimaryKeyColumns(ctx, s.cfg.ConnectionID, s.cfg.Database, s.cfg.Schema, s.cfg.Table)
	if err != nil {
		return fmt.Errorf("failed to load primary key for %s.%s: %w", s.cfg.Schema, s.cfg.Table, err)
	}

	s.mu.Lock()
	s.ctx = ctx
	s.columns = columns
	s.names = core.ColumnNames(columns)
	s.pk = pk
	s.store = NewPageStore(columns, pk)
	s.opened = true
	gen := s.seq.Generation()
	s.mu.Unlock()

	s.logger.Debug("session opened",
		slog.String("table", s.cfg.Schema+"."+s.cfg.Table),
		slog.Int("columns", len(columns)),
		slog.Int("pk_columns", len(pk)))

	return s.fetch(ctx, gen, 0)
}

// Close cancels any pending debounced fetch. In-flight remote calls are not
// aborted; their results are discarded on arrival.
func (s *Session) Close() {
	s.seq.Stop()
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Columns:    s.columns,
		PrimaryKey: s.pk,
		Editable:   len(s.pk) > 0,
		Filter:     append(query.FilterSpec(nil), s.filter...),
		Loading:    s.loading,
		Generation: s.seq.Generation(),
	}
	if s.sort != nil {
		sortCopy := *s.sort
		st.Sort = &sortCopy
	}
	if s.fetchErr != nil {
		st.FetchError = s.fetchErr.Error()
	}
	if s.store != nil {
		st.Rows = append([]core.Row(nil), s.store.Rows()...)
		if total, ok := s.store.TotalCount(); ok {
			st.TotalCount = &total
		}
		st.HasMore = s.store.HasMore()
	}
	if len(s.selection) > 0 {
		st.Selection = make(map[string]bool, len(s.selection))
		for id := range s.selection {
			st.Selection[id] = true
		}
	}
	return st
}

// SetFilter records a filter edit for one column and schedules a debounced
// refetch. Bursts of edits within the quiet window coalesce into a single
// fetch using the last value. The selection is cleared immediately.
func (s *Session) SetFilter(column, value string) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return
	}
	s.filter = s.filter.With(column, value)
	clear(s.selection)
	ctx := s.ctx
	s.mu.Unlock()

	s.seq.Bump()
	s.seq.Schedule(FetchDebounced, func(gen uint64) {
		if err := s.fetch(ctx, gen, 0); err != nil {
			s.logger.Debug("debounced fetch failed", slog.String("error", err.Error()))
		}
	})
	s.notify()
}

// ToggleSort cycles the sort state of a column: ascending, then descending,
// then unsorted. Sorting a different column starts at ascending. The refetch
// is immediate and its error is returned.
func (s *Session) ToggleSort(ctx context.Context, column string) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Validationf("session not open")
	}
	switch {
	case s.sort == nil || s.sort.Column != column:
		s.sort = &query.Sort{Column: column, Direction: query.Asc}
	case s.sort.Direction == query.Asc:
		s.sort = &query.Sort{Column: column, Direction: query.Desc}
	default:
		s.sort = nil
	}
	clear(s.selection)
	s.mu.Unlock()

	s.seq.Bump()
	var err error
	s.seq.Schedule(FetchImmediate, func(gen uint64) {
		err = s.fetch(ctx, gen, 0)
	})
	return err
}

// LoadMore fetches the next page at the current generation, using the count
// of locally held rows as the offset.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Validationf("session not open")
	}
	if !s.store.HasMore() {
		s.mu.Unlock()
		return nil
	}
	offset := len(s.store.Rows())
	s.mu.Unlock()

	var err error
	s.seq.Schedule(FetchImmediate, func(gen uint64) {
		err = s.fetch(ctx, gen, offset)
	})
	return err
}

// Refresh refetches the first page under a new generation, superseding any
// in-flight fetch.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Validationf("session not open")
	}
	s.mu.Unlock()

	s.seq.Bump()
	var err error
	s.seq.Schedule(FetchImmediate, func(gen uint64) {
		err = s.fetch(ctx, gen, 0)
	})
	return err
}

// ToggleSelect flips the selection state of a row identity. Selection is
// rejected when the table has no primary key, since no stable identity
// exists.
func (s *Session) ToggleSelect(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pk) == 0 {
		return core.Validationf("table has no primary key; rows cannot be selected")
	}
	if identity == "" {
		return core.Validationf("empty row identity")
	}
	if _, ok := s.selection[identity]; ok {
		delete(s.selection, identity)
	} else {
		s.selection[identity] = struct{}{}
	}
	return nil
}

// ClearSelection drops all selected identities.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selection)
}

// UpdateCell coerces raw input and writes one cell remotely; the cached row
// is patched in place only after the remote write succeeds.
func (s *Session) UpdateCell(ctx context.Context, identity, column, raw string) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Validationf("session not open")
	}
	if len(s.pk) == 0 {
		s.mu.Unlock()
		return core.Validationf("table has no primary key; cells cannot be edited")
	}
	ri := s.store.FindByIdentity(identity)
	if ri < 0 {
		s.mu.Unlock()
		return core.Validationf("no row with identity %q in the loaded page", identity)
	}
	if !s.hasColumn(column) {
		s.mu.Unlock()
		return core.Validationf("unknown column %q", column)
	}
	pkValues := s.primaryKeyValuesLocked(s.store.Rows()[ri])
	s.mu.Unlock()

	value := core.Coerce(raw)
	if err := s.exec.UpdateCell(ctx, s.cfg.ConnectionID, s.cfg.Database, s.cfg.Schema, s.cfg.Table,
		column, s.pk, pkValues, value); err != nil {
		return err
	}

	s.mu.Lock()
	err := s.store.ApplyCellUpdate(identity, column, value)
	s.mu.Unlock()
	if err != nil {
		// The write succeeded but the cached row vanished meanwhile; the
		// cache is simply left as is.
		s.logger.Debug("cell update not applied locally", slog.String("error", err.Error()))
	}
	s.notify()
	return nil
}

// Insert coerces the provided column values and inserts one row. Blank
// values are skipped; an insert with every column blank is rejected locally.
// On success the total count is bumped and the first page force-refetched,
// since the new row's position in the table's implicit order is unknown.
func (s *Session) Insert(ctx context.Context, values map[string]string) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Validationf("session not open")
	}
	var (
		cols  []string
		vals  []core.Scalar
		types []string
	)
	// Iterate the session's column order so the statement is deterministic.
	for _, col := range s.columns {
		raw, ok := values[col.Name]
		if !ok || raw == "" {
			continue
		}
		cols = append(cols, col.Name)
		vals = append(vals, core.Coerce(raw))
		types = append(types, col.DataType)
	}
	s.mu.Unlock()

	if len(cols) == 0 {
		return core.Validationf("insert requires at least one non-empty column value")
	}

	if err := s.exec.InsertRow(ctx, s.cfg.ConnectionID, s.cfg.Database, s.cfg.Schema, s.cfg.Table,
		cols, vals, types); err != nil {
		return err
	}

	s.mu.Lock()
	s.store.IncrementCountOnInsert()
	s.mu.Unlock()
	s.notify()

	var err error
	s.seq.Schedule(FetchImmediate, func(gen uint64) {
		err = s.fetch(ctx, gen, 0)
	})
	return err
}

// DeleteSelected deletes every selected row remotely, then drops them from
// the cache and clears the selection. A delete with nothing selected is
// rejected locally.
func (s *Session) DeleteSelected(ctx context.Context) error {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return core.Validationf("session not open")
	}
	if len(s.pk) == 0 {
		s.mu.Unlock()
		return core.Validationf("table has no primary key; rows cannot be deleted")
	}
	if len(s.selection) == 0 {
		s.mu.Unlock()
		return core.Validationf("no rows selected")
	}

	// Collect primary-key tuples for the selected identities in cached-row
	// order, so the statement text is deterministic.
	identities := make(map[string]struct{}, len(s.selection))
	for id := range s.selection {
		identities[id] = struct{}{}
	}
	var tuples [][]core.Scalar
	rows := s.store.Rows()
	for i := range rows {
		if _, hit := identities[s.store.IdentityAt(i)]; hit {
			tuples = append(tuples, s.primaryKeyValuesLocked(rows[i]))
		}
	}
	s.mu.Unlock()

	if len(tuples) == 0 {
		return core.Validationf("selected rows are no longer in the loaded page")
	}

	if err := s.exec.DeleteRows(ctx, s.cfg.ConnectionID, s.cfg.Database, s.cfg.Schema, s.cfg.Table,
		s.pk, tuples); err != nil {
		return err
	}

	s.mu.Lock()
	removed := s.store.RemoveByIdentities(identities)
	clear(s.selection)
	s.mu.Unlock()

	s.logger.Debug("rows deleted", slog.Int("requested", len(tuples)), slog.Int("removed_locally", removed))
	s.notify()
	return nil
}

// Compiler exposes the session's query compiler to callers that need the
// statement text (the HTTP layer's explain endpoint, tests).
func (s *Session) Compiler() *query.Compiler { return s.compiler }

// fetch loads one page (and, for a replacing fetch, the matching count) and
// commits the result only if gen is still the current generation. A failed
// fetch never partially applies: rows and count keep their pre-fetch values.
func (s *Session) fetch(ctx context.Context, gen uint64, offset int) error {
	s.mu.Lock()
	filter := append(query.FilterSpec(nil), s.filter...)
	var sort *query.Sort
	if s.sort != nil {
		sortCopy := *s.sort
		sort = &sortCopy
	}
	s.loading = true
	s.fetchErr = nil
	s.mu.Unlock()
	s.notify()

	pageSQL := s.compiler.SelectPage(s.cfg.Schema, s.cfg.Table, filter, sort, s.cfg.PageSize, offset)
	result, err := s.exec.ExecuteQuery(ctx, s.cfg.ConnectionID, s.cfg.Database, pageSQL)
	if err != nil {
		return s.fetchFailed(gen, err)
	}

	var total int64
	replacing := offset == 0
	if replacing {
		countSQL := s.compiler.SelectCount(s.cfg.Schema, s.cfg.Table, filter)
		countRes, err := s.exec.ExecuteQuery(ctx, s.cfg.ConnectionID, s.cfg.Database, countSQL)
		if err != nil {
			return s.fetchFailed(gen, err)
		}
		total, err = scalarCount(countRes)
		if err != nil {
			return s.fetchFailed(gen, err)
		}
	}

	s.mu.Lock()
	if !s.seq.Current(gen) {
		// A newer filter/sort intent superseded this fetch; drop it.
		s.mu.Unlock()
		s.logger.Debug("discarding stale fetch result",
			slog.Uint64("generation", gen),
			slog.Uint64("current", s.seq.Generation()))
		return nil
	}
	if replacing {
		s.store.ReplacePage(result.Rows, total)
	} else {
		s.store.AppendPage(result.Rows)
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return nil
}

// fetchFailed records a fetch error without touching rows or count, but only
// while the failing fetch still represents the current intent.
func (s *Session) fetchFailed(gen uint64, err error) error {
	s.mu.Lock()
	if s.seq.Current(gen) {
		s.loading = false
		s.fetchErr = err
	}
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *Session) hasColumn(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// primaryKeyValuesLocked extracts the row's primary-key values in declared
// order. Caller holds s.mu.
func (s *Session) primaryKeyValuesLocked(row core.Row) []core.Scalar {
	values := make([]core.Scalar, 0, len(s.pk))
	for _, pk := range s.pk {
		value := core.Null()
		for i, n := range s.names {
			if n == pk && i < len(row) {
				value = row[i]
				break
			}
		}
		values = append(values, value)
	}
	return values
}

func (s *Session) notify() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}

// scalarCount extracts the single count value from a COUNT(*) result.
func scalarCount(res *core.QueryResult) (int64, error) {
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
		return 0, fmt.Errorf("count query returned no rows")
	}
	v := res.Rows[0][0]
	if v.Kind() != core.KindNumber {
		return 0, fmt.Errorf("count query returned %s, want number", v.Kind())
	}
	return int64(v.AsNumber()), nil
}
