package errors

import (
	"context"
	"errors"
	"fmt"
)

// Common error types used across the gatelimit library

var (
	// ErrRejected indicates that the limiter has no capacity left for the key.
	// It is the normal outcome of an exhausted quota, not a fault.
	ErrRejected = errors.New("rejected")

	// ErrStoreAbused indicates that a key holds a value the limiter did not write,
	// usually because another writer collided on the same key.
	ErrStoreAbused = errors.New("shared store abused by other users")

	// ErrNotFound indicates that a key does not exist in the store
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrTimeout indicates that an operation timed out. Store failures caused by
	// a deadline or a network timeout match it through OperationError.
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError describes an invalid configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for the given module and field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError describes a failed operation against a backend.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError wrapping cause.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// Is reports a timed out cause as ErrTimeout.
func (e *OperationError) Is(target error) bool {
	return target == ErrTimeout && isTimeout(e.Cause)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// IsRejected returns true if err signals an exhausted quota
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsStoreAbused returns true if err signals a foreign value in the store
func IsStoreAbused(err error) bool {
	return errors.Is(err, ErrStoreAbused)
}

// IsNotFound returns true if err signals an absent key
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError returns true if err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsRetryable returns true if the error indicates a transient store failure
// that might be resolved by retrying the operation. A rejection is an answer,
// not a failure, and is never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
