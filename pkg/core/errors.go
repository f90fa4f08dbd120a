package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: wrong_subject, unknown_command, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code.
// This lets callers match derived errors against the predefined ones.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with formatting.
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Unknown command errors
	ErrUnknownCommand = &ExecutionError{
		Category: ErrCategoryUnknownCommand,
		Code:     "unknown_command",
		Message:  "unknown command",
	}
	ErrUnknownAssertion = &ExecutionError{
		Category: ErrCategoryUnknownCommand,
		Code:     "unknown_assertion",
		Message:  "unknown assertion",
	}

	// Subject errors
	ErrWrongSubject = &ExecutionError{
		Category: ErrCategorySubject,
		Code:     "wrong_subject",
		Message:  "wrong subject",
	}
	ErrUnsupportedSubject = &ExecutionError{
		Category: ErrCategoryUnsupported,
		Code:     "unsupported_subject",
		Message:  "subject not supported",
	}

	// Resolution errors
	ErrUnknownModifier = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "unknown_modifier",
		Message:  "unknown selector modifier",
	}
	ErrUnknownPosition = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "unknown_position",
		Message:  "unknown position",
	}
	ErrAliasNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "alias_not_found",
		Message:  "alias not found",
	}

	// Chain errors
	ErrIllegalChain = &ExecutionError{
		Category: ErrCategoryChain,
		Code:     "illegal_chain",
		Message:  "illegal chain usage",
	}
	ErrInvalidArgument = &ExecutionError{
		Category: ErrCategoryChain,
		Code:     "invalid_argument",
		Message:  "invalid argument",
	}

	// Assertion errors
	ErrAssertionFailed = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "assertion_failed",
		Message:  "assertion failed",
	}
	ErrPropertyMissing = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "property_missing",
		Message:  "property does not exist",
	}

	// Driver errors
	ErrDriver = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "driver_error",
		Message:  "driver operation failed",
	}
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryDriver,
		Code:     "timeout",
		Message:  "operation timed out",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// WrongSubject reports that a command needed a subject of kind required.
func WrongSubject(command string, required, actual SubjectKind) *ExecutionError {
	return ErrWrongSubject.
		WithMessagef("%s requires a %s subject, got %s", command, required, actual).
		WithDetails(map[string]interface{}{
			"command":  command,
			"required": required.String(),
			"actual":   actual.String(),
		})
}

// UnsupportedSubject reports a command that has no meaning for the subject kind.
func UnsupportedSubject(command string, kind SubjectKind) *ExecutionError {
	return ErrUnsupportedSubject.
		WithMessagef("%s subject not supported by %s", kind, command).
		WithDetails(map[string]interface{}{"command": command, "kind": kind.String()})
}

// UnknownCommand reports a discriminant with no registered handler.
func UnknownCommand(discriminant string) *ExecutionError {
	return ErrUnknownCommand.
		WithMessagef("unknown command %q", discriminant).
		WithDetails(map[string]interface{}{"command": discriminant})
}

// UnknownAssertion reports an assertion name with no registered handler.
func UnknownAssertion(name string) *ExecutionError {
	return ErrUnknownAssertion.
		WithMessagef("unknown assertion %q", name).
		WithDetails(map[string]interface{}{"assertion": name})
}

// DriverError wraps a failure returned by the browser driver.
func DriverError(op string, cause error) *ExecutionError {
	return ErrDriver.WithMessagef("%s failed", op).WithCause(cause)
}
