package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by storage, reconcile and tasks.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrMalformedDocument  = errors.New("malformed document")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrValidation         = errors.New("validation error")
	ErrIOFailure          = errors.New("io failure")
)

// IOError wraps a filesystem error. It matches both ErrIOFailure and the
// underlying error under errors.Is.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIOFailure, e.Err} }

// NewIOError returns nil when err is nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
