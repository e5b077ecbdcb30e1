package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the gofabric runtime

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrShutdown indicates that the fabric no longer accepts work
	ErrShutdown = errors.New("fabric is shut down")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrFreed indicates use of a resource after it was explicitly released
	ErrFreed = errors.New("resource has been freed")
)

// ValidationError describes a configuration value rejected at construction time.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
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

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps the cause of a failed runtime operation.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError for module.operation.
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

// MisuseError is the panic value for programming errors the runtime refuses
// to tolerate: sending on a closed channel, driving a waitgroup negative,
// releasing a pooled carrier twice. Task panics carrying a MisuseError are
// never recovered by the fabric.
type MisuseError struct {
	Module    string
	Operation string
	Cause     error
}

// Misuse panics with a MisuseError. It never returns.
func Misuse(module, operation string, cause error) {
	panic(&MisuseError{Module: module, Operation: operation, Cause: cause})
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("%s: misuse in %s: %v", e.Module, e.Operation, e.Cause)
}

func (e *MisuseError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsMisuse reports whether v (an error or a recovered panic value) is a MisuseError.
func IsMisuse(v interface{}) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var merr *MisuseError
	return errors.As(err, &merr)
}

// IsTemporary returns true if the error indicates a condition that may clear
// on its own
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout)
}
