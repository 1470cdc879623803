package core

import "strings"

// identityDelimiter joins per-column encodings. The unit separator can never
// appear inside an encoding: word and number encodings are printable ASCII,
// and quoted encodings escape all control characters.
const identityDelimiter = "\x1f"

// IdentityOf derives a stable composite-key string for a row from its
// primary-key column list. For each primary-key column in declared order, the
// cell at its positional index in columnNames is canonically encoded and the
// encodings are joined. Two rows with equal primary-key values always produce
// equal identity strings, even if other columns differ.
//
// An empty primaryKeyColumns list returns ""; callers must treat such a table
// as non-selectable and non-editable, since no stable identity exists.
func IdentityOf(row Row, primaryKeyColumns []string, columnNames []string) string {
	if len(primaryKeyColumns) == 0 {
		return ""
	}

	index := make(map[string]int, len(columnNames))
	for i, name := range columnNames {
		index[name] = i
	}

	parts := make([]string, 0, len(primaryKeyColumns))
	for _, pk := range primaryKeyColumns {
		value := Null()
		if i, ok := index[pk]; ok && i < len(row) {
			value = row[i]
		}
		parts = append(parts, value.Encode())
	}
	return strings.Join(parts, identityDelimiter)
}
