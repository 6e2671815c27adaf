package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks failures to read from or reach the database.
	ErrUnavailable = errors.New("store unavailable")
	// ErrWriteRejected marks writes the database refused or could not complete.
	ErrWriteRejected = errors.New("store rejected write")
)

// Error is returned by every store operation that fails at the database layer.
// It matches both its Kind and the underlying cause with errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("store: %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{e.Kind, e.Err}
}

func readError(op string, err error) error {
	return &Error{Op: op, Kind: ErrUnavailable, Err: err}
}

func writeError(op string, err error) error {
	return &Error{Op: op, Kind: ErrWriteRejected, Err: err}
}
