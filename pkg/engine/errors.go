// Package engine executes parsed flows against a browser: it resolves
// placeholders, dispatches steps, drives the pause/continue state
// machine and runs whole batches of accounts.
package engine

import (
	"fmt"
)

// ErrorCategory classifies an engine error for reporting.
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryDefinition                      // Flow file problems found before or during execution
	ErrCategoryResolution                      // Placeholder could not be resolved
	ErrCategoryElement                         // Element never reached the requested state
	ErrCategoryAssertion                       // Expectation on page state failed
	ErrCategoryTimeout                         // Verification wait exhausted its budget
	ErrCategoryBrowser                         // Browser session failure
)

// String returns the string representation of ErrorCategory.
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryDefinition:
		return "definition"
	case ErrCategoryResolution:
		return "resolution"
	case ErrCategoryElement:
		return "element"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryBrowser:
		return "browser"
	default:
		return "unknown"
	}
}

// EngineError represents a structured error with category and details.
type EngineError struct {
	Category ErrorCategory
	Code     string         // Machine-readable code: unresolved_variable, element_timeout, etc.
	Message  string         // Human-readable message
	Details  map[string]any // Additional context
	Cause    error          // Underlying error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is matches two engine errors by code, so errors.Is works against the
// predefined errors regardless of message or cause.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *EngineError) WithCause(cause error) *EngineError {
	return &EngineError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *EngineError) WithMessage(msg string) *EngineError {
	return &EngineError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *EngineError) WithDetails(details map[string]any) *EngineError {
	merged := make(map[string]any)
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &EngineError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors. Match with errors.Is.
var (
	ErrUnresolvedVariable = &EngineError{
		Category: ErrCategoryResolution,
		Code:     "unresolved_variable",
		Message:  "unresolved variable",
	}
	ErrInvalidFlow = &EngineError{
		Category: ErrCategoryDefinition,
		Code:     "invalid_flow",
		Message:  "invalid flow definition",
	}
	ErrUnknownAction = &EngineError{
		Category: ErrCategoryDefinition,
		Code:     "unknown_action",
		Message:  "unknown action",
	}
	ErrElementTimeout = &EngineError{
		Category: ErrCategoryElement,
		Code:     "element_timeout",
		Message:  "element did not reach requested state in time",
	}
	ErrExpectationFailed = &EngineError{
		Category: ErrCategoryAssertion,
		Code:     "expectation_failed",
		Message:  "expected page state was not reached",
	}
	ErrVerificationTimeout = &EngineError{
		Category: ErrCategoryTimeout,
		Code:     "verification_timeout",
		Message:  "verification page did not become ready in time",
	}
	ErrBrowser = &EngineError{
		Category: ErrCategoryBrowser,
		Code:     "browser_failure",
		Message:  "browser operation failed",
	}
)

// unresolvedVariable builds an ErrUnresolvedVariable naming the
// offending placeholder.
func unresolvedVariable(scope, key string) *EngineError {
	return &EngineError{
		Category: ErrCategoryResolution,
		Code:     ErrUnresolvedVariable.Code,
		Message:  fmt.Sprintf("unresolved variable {%s.%s}: no value in scope %q", scope, key, scope),
		Details:  map[string]any{"scope": scope, "key": key},
	}
}
