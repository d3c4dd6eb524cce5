package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors exposed to higher layers. Link/unlink style operations
// translate ErrNotFound into a failure boolean instead of propagating it.
var (
	ErrNotFound   = errors.New("record not found")
	ErrConstraint = errors.New("unique constraint violated")
)

// InitError wraps a failure that prevented the store from opening. Callers
// treat it as fatal; the application cannot run without its database.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("store initialization failed: %v", e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// QueryError wraps a failed statement with its original cause. It is
// recoverable: callers keep their prior state and surface a message.
type QueryError struct {
	Stmt string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%s): %v", e.Stmt, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// wrapExec normalizes driver errors: unique constraint violations become
// ErrConstraint so callers can branch with errors.Is, everything else is
// wrapped in a QueryError carrying the original cause.
func wrapExec(stmt string, err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		}
	}
	return &QueryError{Stmt: stmt, Err: err}
}
