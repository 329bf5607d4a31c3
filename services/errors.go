package services

import (
	"fmt"
	"strings"
)

// ValidationError reports user-correctable input problems. Fields names the
// missing or invalid fields so the client can highlight them.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

// NewValidationError builds a ValidationError over the given field names.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// StateTransitionError reports an illegal status or step change. The quote is
// left untouched.
type StateTransitionError struct {
	From string
	To   string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %q to %q", e.From, e.To)
}

// NotFoundError reports a missing quote or referenced entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports a write against a stale aggregate version.
type ConflictError struct {
	ID      string
	Version int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("quote %s was modified concurrently (stale version %d)", e.ID, e.Version)
}

// RenderError reports a failed document generation. Quote state and amounts
// are unaffected; the request is retryable.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "document rendering failed: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
