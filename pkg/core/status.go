package core

import "errors"

// StepStatus represents the execution status of a step
type StepStatus int

const (
	StatusPending StepStatus = iota // Not yet started
	StatusRunning                   // Currently executing
	StatusPassed                    // Completed successfully
	StatusFailed                    // Assertion failed
	StatusErrored                   // Unexpected error (driver, subject shape, unknown command)
	StatusSkipped                   // A previous step failed
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s StepStatus) IsSuccess() bool {
	return s == StatusPassed
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone           ErrorCategory = iota // No error
	ErrCategoryUnknownCommand                      // Unregistered action type or assertion name
	ErrCategorySubject                             // Command needed a different subject kind
	ErrCategoryResolution                          // Unknown selector modifier, scroll position or alias
	ErrCategoryUnsupported                         // Operation has no meaning for the subject kind
	ErrCategoryChain                               // Illegal chain usage or bad arguments at build time
	ErrCategoryAssertion                           // Expectation not met
	ErrCategoryDriver                              // Browser driver failure
	ErrCategoryConfig                              // Invalid configuration
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryUnknownCommand:
		return "unknown_command"
	case ErrCategorySubject:
		return "subject"
	case ErrCategoryResolution:
		return "resolution"
	case ErrCategoryUnsupported:
		return "unsupported"
	case ErrCategoryChain:
		return "chain"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryDriver:
		return "driver"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// StatusFor maps an error to the step status it produces.
func StatusFor(err error) StepStatus {
	if err == nil {
		return StatusPassed
	}
	var e *ExecutionError
	if errors.As(err, &e) && e.Category == ErrCategoryAssertion {
		return StatusFailed
	}
	return StatusErrored
}

// CategoryOf returns the category of an ExecutionError anywhere in err's
// chain, or ErrCategoryNone.
func CategoryOf(err error) ErrorCategory {
	var e *ExecutionError
	if errors.As(err, &e) {
		return e.Category
	}
	return ErrCategoryNone
}
