// Package query compiles filter/sort/paging intent into SQL text.
//
// Read statements embed the (escaped) filter pattern directly because the
// filter is a best-effort convenience match, not an expression language.
// Every write statement is parameterized; literals never appear in write SQL.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rowboat-dev/rowboat/pkg/dialect"
)

// Direction is a sort direction.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "asc"
	// Desc sorts descending.
	Desc Direction = "desc"
)

// Sort is a single-column sort. Direction is never set without Column.
type Sort struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Filter is one column filter. Reserved values "null" and "not null"
// (case-insensitive) compile to IS NULL / IS NOT NULL; any other non-empty
// value is a case-insensitive partial match against the column's text
// representation.
type Filter struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// FilterSpec is an ordered set of column filters. Order is insertion order;
// it only affects the rendered text, not the semantics, since the predicates
// are AND-combined.
type FilterSpec []Filter

// With returns a copy of the spec with the filter for column set to value.
// An empty value removes the column's filter.
func (fs FilterSpec) With(column, value string) FilterSpec {
	out := make(FilterSpec, 0, len(fs)+1)
	replaced := false
	for _, f := range fs {
		if f.Column == column {
			if value != "" {
				out = append(out, Filter{Column: column, Value: value})
			}
			replaced = true
			continue
		}
		out = append(out, f)
	}
	if !replaced && value != "" {
		out = append(out, Filter{Column: column, Value: value})
	}
	return out
}

// Get returns the filter value for a column, or "".
func (fs FilterSpec) Get(column string) string {
	for _, f := range fs {
		if f.Column == column {
			return f.Value
		}
	}
	return ""
}

// Compiler builds the SQL statements for one dialect.
type Compiler struct {
	d *dialect.Dialect
}

// NewCompiler creates a compiler for the given dialect.
func NewCompiler(d *dialect.Dialect) *Compiler {
	return &Compiler{d: d}
}

// SelectPage compiles the bounded page select. Offset for a "load more"
// request is the count of rows already held locally, not a server cursor;
// the dataset shifting between pages can therefore produce duplicate or
// skipped rows. That is an accepted limitation of offset paging.
func (c *Compiler) SelectPage(schema, table string, filter FilterSpec, sort *Sort, limit, offset int) string {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(c.d.QuoteQualified(schema, table))
	c.writeWhere(&sb, filter)

	if sort != nil && sort.Column != "" {
		dir := "ASC"
		if sort.Direction == Desc {
			dir = "DESC"
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(c.d.QuoteIdentifier(sort.Column))
		sb.WriteString(" ")
		sb.WriteString(dir)
	}

	fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", limit, offset)
	return sb.String()
}

// SelectCount compiles the unbounded count select: same filter as the page
// select, no sort, no limit.
func (c *Compiler) SelectCount(schema, table string, filter FilterSpec) string {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(c.d.QuoteQualified(schema, table))
	c.writeWhere(&sb, filter)
	return sb.String()
}

// Insert compiles a parameterized insert templated over the caller-supplied
// column/type pairs. Values are bound as parameters; columnTypes (from schema
// introspection) are rendered as casts where the type name is well-formed.
func (c *Compiler) Insert(schema, table string, columns, columnTypes []string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(c.d.QuoteQualified(schema, table))
	sb.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.d.QuoteIdentifier(col))
	}
	sb.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.placeholderWithCast(i+1, typeAt(columnTypes, i)))
	}
	sb.WriteString(")")
	return sb.String()
}

// UpdateCell compiles a parameterized single-cell update. The new value is
// parameter 1; primary-key values follow in declared order.
func (c *Compiler) UpdateCell(schema, table, column string, primaryKeyColumns []string) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(c.d.QuoteQualified(schema, table))
	sb.WriteString(" SET ")
	sb.WriteString(c.d.QuoteIdentifier(column))
	sb.WriteString(" = ")
	sb.WriteString(c.d.FormatPlaceholder(1))
	sb.WriteString(" WHERE ")
	for i, pk := range primaryKeyColumns {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c.d.QuoteIdentifier(pk))
		sb.WriteString(" = ")
		sb.WriteString(c.d.FormatPlaceholder(i + 2))
	}
	return sb.String()
}

// DeleteRows compiles a parameterized delete for rowCount rows identified by
// their primary-key tuples. Parameters are bound row-major.
func (c *Compiler) DeleteRows(schema, table string, primaryKeyColumns []string, rowCount int) string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(c.d.QuoteQualified(schema, table))
	sb.WriteString(" WHERE ")

	if len(primaryKeyColumns) == 1 {
		sb.WriteString(c.d.QuoteIdentifier(primaryKeyColumns[0]))
		sb.WriteString(" IN (")
		for i := 0; i < rowCount; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.d.FormatPlaceholder(i + 1))
		}
		sb.WriteString(")")
		return sb.String()
	}

	sb.WriteString("(")
	for i, pk := range primaryKeyColumns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.d.QuoteIdentifier(pk))
	}
	sb.WriteString(") IN (")
	p := 1
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range primaryKeyColumns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(c.d.FormatPlaceholder(p))
			p++
		}
		sb.WriteString(")")
	}
	sb.WriteString(")")
	return sb.String()
}

func (c *Compiler) writeWhere(sb *strings.Builder, filter FilterSpec) {
	first := true
	for _, f := range filter {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		if first {
			sb.WriteString(" WHERE ")
			first = false
		} else {
			sb.WriteString(" AND ")
		}

		col := c.d.QuoteIdentifier(f.Column)
		switch {
		case strings.EqualFold(value, "null"):
			sb.WriteString(col)
			sb.WriteString(" IS NULL")
		case strings.EqualFold(value, "not null"):
			sb.WriteString(col)
			sb.WriteString(" IS NOT NULL")
		default:
			sb.WriteString(c.d.ContainsPattern(c.d.CastToText(col), escapePattern(value)))
		}
	}
}

// escapePattern wraps a filter value in a '%...%' pattern literal with
// embedded single quotes doubled.
func escapePattern(value string) string {
	return "'%" + strings.ReplaceAll(value, "'", "''") + "%'"
}

// typeNamePattern accepts the type names information_schema reports
// ("integer", "character varying", "timestamp with time zone", "_int4").
var typeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ ()\[\],]*$`)

// placeholderWithCast renders a bind placeholder, cast to the column's
// declared type when the dialect and the type name allow it. The cast lets
// the server parse text input for types the driver cannot bind natively
// (uuid, jsonb, timestamps).
func (c *Compiler) placeholderWithCast(index int, typeName string) string {
	ph := c.d.FormatPlaceholder(index)
	if typeName == "" || !c.d.SupportsCastOperator || !typeNamePattern.MatchString(typeName) {
		return ph
	}
	return ph + "::" + typeName
}

func typeAt(types []string, i int) string {
	if i < len(types) {
		return types[i]
	}
	return ""
}
