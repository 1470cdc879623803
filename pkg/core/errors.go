package core

import "fmt"

// ConnectivityError means a remote call never reached the database. It is
// surfaced verbatim to the user; nothing in this codebase retries it.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// QueryError means the database rejected a statement (malformed SQL,
// constraint violation on a write). The local cache is left unmodified.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ValidationError is caught locally before any remote call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
