package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rowboat-dev/rowboat/internal/session"
	"github.com/rowboat-dev/rowboat/pkg/core"
)

var (
	styleStatus = lipgloss.NewStyle().Faint(true)
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleMarker = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

func renderResult(w io.Writer, res *core.QueryResult, format string) error {
	switch format {
	case "json":
		return renderResultJSON(w, res)
	case "csv":
		return renderResultCSV(w, res)
	case "md", "markdown":
		return renderResultMarkdown(w, res)
	default:
		return renderResultTable(w, res)
	}
}

func renderResultTable(w io.Writer, res *core.QueryResult) error {
	if res.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range res.Rows {
		out := make(table.Row, len(row))
		for i, v := range row {
			out[i] = formatScalar(v)
		}
		t.AppendRow(out)
	}
	t.Render()

	_, _ = fmt.Fprintf(w, "(%d rows, %dms)\n", res.RowCount, res.ExecutionTimeMs)
	return nil
}

func renderResultJSON(w io.Writer, res *core.QueryResult) error {
	out := make([]map[string]core.Scalar, 0, len(res.Rows))
	for _, row := range res.Rows {
		m := make(map[string]core.Scalar, len(res.Columns))
		for i, col := range res.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderResultCSV(w io.Writer, res *core.QueryResult) error {
	_, _ = fmt.Fprintln(w, strings.Join(res.Columns, ","))
	for _, row := range res.Rows {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = escapeCSV(formatScalar(v))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderResultMarkdown(w io.Writer, res *core.QueryResult) error {
	if res.RowCount == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(res.Columns, " | "))
	seps := make([]string, len(res.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))
	for _, row := range res.Rows {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = formatScalar(v)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func formatScalar(v core.Scalar) string {
	if v.IsNull() {
		return "NULL"
	}
	return v.Display()
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// renderPage prints the current window of a browse session: row numbers, a
// selection marker column, then the table columns in ordinal order.
func renderPage(w io.Writer, st session.State) {
	if st.FetchError != "" {
		_, _ = fmt.Fprintln(w, styleError.Render("fetch failed: "+st.FetchError))
	}
	if len(st.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(no rows)")
		_, _ = fmt.Fprintln(w, styleStatus.Render(pageStatus(st)))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(st.Columns)+2)
	header = append(header, "#", "")
	for _, col := range st.Columns {
		name := col.Name
		if st.Sort != nil && st.Sort.Column == col.Name {
			name += " " + string(st.Sort.Direction)
		}
		header = append(header, name)
	}
	t.AppendHeader(header)

	for i, row := range st.Rows {
		out := make(table.Row, 0, len(row)+2)
		marker := ""
		if identity := rowIdentity(st, i); identity != "" && st.Selection[identity] {
			marker = styleMarker.Render("*")
		}
		out = append(out, i+1, marker)
		for _, v := range row {
			out = append(out, formatScalar(v))
		}
		t.AppendRow(out)
	}
	t.Render()
	_, _ = fmt.Fprintln(w, styleStatus.Render(pageStatus(st)))
}

func pageStatus(st session.State) string {
	var b strings.Builder
	if st.TotalCount != nil {
		fmt.Fprintf(&b, "%d of %d rows", len(st.Rows), *st.TotalCount)
	} else {
		fmt.Fprintf(&b, "%d rows", len(st.Rows))
	}
	if st.HasMore {
		b.WriteString(" (more available, /more to load)")
	}
	if len(st.Filter) > 0 {
		b.WriteString(" | filtered on ")
		names := make([]string, len(st.Filter))
		for i, f := range st.Filter {
			names[i] = f.Column
		}
		b.WriteString(strings.Join(names, ", "))
	}
	if n := len(st.Selection); n > 0 {
		fmt.Fprintf(&b, " | %d selected", n)
	}
	if !st.Editable {
		b.WriteString(" | read-only (no primary key)")
	}
	return b.String()
}

// rowIdentity recomputes the identity of a cached row so the selection set
// can be matched against the rendered window.
func rowIdentity(st session.State, index int) string {
	if index >= len(st.Rows) {
		return ""
	}
	names := make([]string, len(st.Columns))
	for i, col := range st.Columns {
		names[i] = col.Name
	}
	return core.IdentityOf(st.Rows[index], st.PrimaryKey, names)
}
