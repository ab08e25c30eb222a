package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateOperation = errors.New("duplicate operation")
)

// ValidationError reports bad input to a domain constructor or update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateTransitionError reports an illegal lifecycle move. It carries
// both the state the entity was in and the state the caller attempted to
// reach so the violation is diagnosable from the error alone.
type InvalidStateTransitionError struct {
	Current   JobStatus
	Attempted JobStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.Current, e.Attempted)
}

// ProviderError wraps a failure from an external AI provider. Retryable
// signals whether the resilience layer may re-attempt the call.
type ProviderError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// InternalError wraps unexpected storage or lookup failures.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal: %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
