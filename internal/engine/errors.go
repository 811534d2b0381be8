package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. Callers branch with
// errors.Is; the typed errors below carry the details.
var (
	// ErrNotFound marks a referenced schema, table, or column that does
	// not exist. Surfaced per-call, never retried.
	ErrNotFound = errors.New("not found")

	// ErrForbiddenStatement marks a query rejected by the read-only gate
	// before execution.
	ErrForbiddenStatement = errors.New("forbidden statement")
)

// NotFoundError reports a missing schema, table, or column.
type NotFoundError struct {
	Kind string // "schema", "table", "column"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ForbiddenStatementError reports which mutating keyword caused a query to
// be rejected.
type ForbiddenStatementError struct {
	Keyword string
}

func (e *ForbiddenStatementError) Error() string {
	return fmt.Sprintf("statement rejected: contains forbidden keyword %q", e.Keyword)
}

func (e *ForbiddenStatementError) Unwrap() error {
	return ErrForbiddenStatement
}
