package core

// Column describes one column of the browsed table. The column list is
// fetched once per session open and is read-only afterwards.
type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Nullable   bool   `json:"is_nullable"`
	PrimaryKey bool   `json:"is_primary_key"`
}

// Row is an ordered sequence of cell values, positionally aligned with the
// session's column list.
type Row []Scalar

// QueryResult is the shape every query execution returns.
type QueryResult struct {
	Columns         []string `json:"columns"`
	Rows            []Row    `json:"rows"`
	RowCount        int      `json:"row_count"`
	ExecutionTimeMs int64    `json:"execution_time_ms"`
}

// ColumnNames extracts the name list from a column slice.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// PrimaryKeyOf returns the names of the primary-key columns in declared
// order, or nil when the table has none.
func PrimaryKeyOf(cols []Column) []string {
	var pk []string
	for _, c := range cols {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// SchemaObject identifies one table or view in a database.
type SchemaObject struct {
	Name       string `json:"name"`
	Schema     string `json:"schema"`
	ObjectType string `json:"object_type"` // "table" or "view"
}
