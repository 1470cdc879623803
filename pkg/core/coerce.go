package core

import (
	"strconv"
	"strings"
)

// Coerce parses raw textual cell input into a typed scalar. Rules are applied
// in order on the trimmed input:
//
//  1. empty string or "null" (case-insensitive) -> NULL
//  2. "true"/"false" (case-insensitive) -> bool
//  3. anything strconv.ParseFloat accepts -> number
//  4. otherwise -> the trimmed string verbatim
//
// No column-type awareness is applied: the same rules run regardless of the
// target column, and a type mismatch surfaces as a remote write failure.
// A consequence is that a text column cannot store the literal string "123"
// through this path; it always arrives as a number.
func Coerce(raw string) Scalar {
	t := strings.TrimSpace(raw)
	if t == "" || strings.EqualFold(t, "null") {
		return Null()
	}
	if strings.EqualFold(t, "true") {
		return Bool(true)
	}
	if strings.EqualFold(t, "false") {
		return Bool(false)
	}
	if n, err := strconv.ParseFloat(t, 64); err == nil {
		return Number(n)
	}
	return String(t)
}
