package workflow

import (
	"errors"
	"fmt"

	"github.com/content-review-api/internal/models"
)

var (
	// ErrValidation marks malformed input: missing rejection reason, bad
	// schedule parts, unknown kind. Returned before any storage access.
	ErrValidation = errors.New("validation failed")
	// ErrForbiddenTransition marks an edge that is not legal for the record's
	// current status, kind, actor role or client scope
	ErrForbiddenTransition = errors.New("forbidden transition")
	// ErrStaleState marks an optimistic-concurrency conflict. Callers must
	// re-read the record and decide whether to try again.
	ErrStaleState = errors.New("stale state")
	// ErrNotFound marks an unknown record id
	ErrNotFound = errors.New("content not found")
	// ErrDispatchFailure marks a notification side effect that failed. It is
	// logged and never returned from a transition.
	ErrDispatchFailure = errors.New("notification dispatch failed")
)

// ValidationError describes one invalid input field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError explains why CanTransition refused an edge
type TransitionError struct {
	Kind       models.Kind
	From       models.Status
	Transition models.Transition
	Role       models.Role
	Reason     string

	illegalEdge bool
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("forbidden transition: %s %s from %s by %s: %s",
		e.Kind, e.Transition, e.From, e.Role, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrForbiddenTransition }

// IllegalEdge reports whether the refusal came from the graph itself (no such
// outgoing edge from the current status) rather than from the actor
func (e *TransitionError) IllegalEdge() bool { return e.illegalEdge }

// IsIllegalEdge reports whether err is a TransitionError for a missing edge
func IsIllegalEdge(err error) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.IllegalEdge()
}
