package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a referenced recipe id that is absent from the store or an index.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable signals an index that was never built or is empty.
	ErrUnavailable = errors.New("index unavailable")
	// ErrInvalidInput signals a missing or malformed query parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence signals a snapshot read/write failure or a schema mismatch on load.
	ErrPersistence = errors.New("persistence error")
)

// PersistenceError wraps ErrPersistence with the failing operation and location.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrPersistence, e.Op, e.Path, e.Err)
}

// Unwrap lets errors.Is match both ErrPersistence and the underlying cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// NewPersistenceError builds a PersistenceError.
func NewPersistenceError(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Err: err}
}
