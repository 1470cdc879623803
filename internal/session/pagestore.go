package session

import (
	"fmt"

	"github.com/rowboat-dev/rowboat/pkg/core"
)

// PageStore owns the in-memory row cache and total-count estimate for one
// table session. It is not safe for concurrent use; the owning Session
// serializes all access.
//
// Rows are never reordered except via ReplacePage, and positional cell
// updates match columns by index against the column list the store was
// created with.
type PageStore struct {
	columns    []core.Column
	names      []string
	index      map[string]int
	primaryKey []string

	rows     []core.Row
	total    int64
	hasTotal bool
}

// NewPageStore creates a page store bound to the session's immutable column
// list and primary-key spec.
func NewPageStore(columns []core.Column, primaryKey []string) *PageStore {
	names := core.ColumnNames(columns)
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return &PageStore{
		columns:    columns,
		names:      names,
		index:      index,
		primaryKey: primaryKey,
	}
}

// Rows returns the cached rows. Callers must not mutate the result.
func (p *PageStore) Rows() []core.Row { return p.rows }

// TotalCount returns the current estimate of matching rows, and whether one
// is known yet.
func (p *PageStore) TotalCount() (int64, bool) { return p.total, p.hasTotal }

// HasMore reports whether rows beyond the cached ones match the current
// filter.
func (p *PageStore) HasMore() bool {
	return p.hasTotal && int64(len(p.rows)) < p.total
}

// IdentityAt derives the identity string for the cached row at index i.
func (p *PageStore) IdentityAt(i int) string {
	if i < 0 || i >= len(p.rows) {
		return ""
	}
	return core.IdentityOf(p.rows[i], p.primaryKey, p.names)
}

// FindByIdentity returns the index of the cached row with the given
// identity, or -1.
func (p *PageStore) FindByIdentity(identity string) int {
	if identity == "" {
		return -1
	}
	for i := range p.rows {
		if p.IdentityAt(i) == identity {
			return i
		}
	}
	return -1
}

// ReplacePage replaces the whole cache after a full refetch (initial load,
// filter/sort change, post-insert refresh of the first page).
func (p *PageStore) ReplacePage(rows []core.Row, total int64) {
	p.rows = rows
	p.total = total
	p.hasTotal = true
}

// AppendPage appends a "load more" page in response order. No deduplication
// is performed; offset paging against a shifting dataset can duplicate or
// skip rows, which is an accepted limitation.
func (p *PageStore) AppendPage(rows []core.Row) {
	p.rows = append(p.rows, rows...)
}

// ApplyCellUpdate replaces a single cell of the row with the given identity.
// Called only after the remote write succeeded; every other cached row and
// cell is left untouched.
func (p *PageStore) ApplyCellUpdate(identity, column string, value core.Scalar) error {
	ri := p.FindByIdentity(identity)
	if ri < 0 {
		return fmt.Errorf("no cached row with identity %q", identity)
	}
	ci, ok := p.index[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	row := p.rows[ri]
	if ci >= len(row) {
		return fmt.Errorf("row is shorter than column list (%d <= %d)", len(row), ci)
	}

	updated := make(core.Row, len(row))
	copy(updated, row)
	updated[ci] = value
	p.rows[ri] = updated
	return nil
}

// RemoveByIdentities drops the matching rows from the cache and decrements
// the total count by the number actually removed. Called only after the
// remote delete succeeded.
func (p *PageStore) RemoveByIdentities(identities map[string]struct{}) int {
	if len(identities) == 0 {
		return 0
	}
	kept := p.rows[:0]
	removed := 0
	for i := range p.rows {
		if _, hit := identities[p.IdentityAt(i)]; hit {
			removed++
			continue
		}
		kept = append(kept, p.rows[i])
	}
	p.rows = kept
	if p.hasTotal {
		p.total -= int64(removed)
		if p.total < 0 {
			p.total = 0
		}
	}
	return removed
}

// IncrementCountOnInsert bumps the total count after a successful insert.
// The new row's position in the table's implicit order is unknown, so the
// cache cannot splice it in locally; the session follows up with a forced
// first-page refetch.
func (p *PageStore) IncrementCountOnInsert() {
	if p.hasTotal {
		p.total++
	}
}
