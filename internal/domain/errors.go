package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a search query carries no criteria
var ErrInvalidQuery = errors.New("search query requires a phrase or a category")

// NotFoundError reports a referenced entity that does not exist
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// ConflictError reports a uniqueness violation on insert
type ConflictError struct {
	Entity string
	Field  string
	Value  string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// InvariantError reports an entity in an impossible state. It is never recoverable.
type InvariantError struct {
	Entity string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s invariant violated: %s", e.Entity, e.Reason)
}

// NewNotFound builds a NotFoundError for a numeric key
func NewNotFound(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprintf("%d", id)}
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is or wraps a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsInvariant reports whether err is or wraps an InvariantError
func IsInvariant(err error) bool {
	var target *InvariantError
	return errors.As(err, &target)
}
