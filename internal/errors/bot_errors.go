package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a failure so the tick loop can decide how to
// react: configuration errors stop the process, transient errors are
// retried after a sleep, guard rejections are logged holds, invariant
// violations are loud holds.
type ErrorCategory string

const (
	// Fatal at startup only; the process must not start.
	ErrorCategoryConfig ErrorCategory = "CONFIG"

	// Transient I/O: quote/balance/submission timeouts, HTTP 5xx.
	ErrorCategoryNetwork ErrorCategory = "NETWORK"
	ErrorCategoryTimeout ErrorCategory = "TIMEOUT"

	// The market did not qualify; not an error condition for the loop.
	ErrorCategoryGuard ErrorCategory = "GUARD"

	// A defensive assertion fired; treated as HOLD with a loud log.
	ErrorCategoryInvariant ErrorCategory = "INVARIANT"

	// Trade submission or confirmation failed after a quote passed.
	ErrorCategoryExecution ErrorCategory = "EXECUTION"
)

// BotError carries a category and component context around an error.
type BotError struct {
	Category   ErrorCategory
	Component  string
	Message    string
	Underlying error
}

func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Component, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Component, e.Message)
}

func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether the loop should sleep and try again.
func (e *BotError) IsRetryable() bool {
	return e.Category == ErrorCategoryNetwork || e.Category == ErrorCategoryTimeout
}

// IsFatal reports whether the error must stop the process.
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryConfig
}

// New creates a categorized error.
func New(category ErrorCategory, component, format string, args ...interface{}) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Wrap attaches category and component context to an existing error.
func Wrap(err error, category ErrorCategory, component, message string) *BotError {
	return &BotError{
		Category:   category,
		Component:  component,
		Message:    message,
		Underlying: err,
	}
}

// CategoryOf extracts the category from err, or "" if err is not a BotError.
func CategoryOf(err error) ErrorCategory {
	var be *BotError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// IsGuard reports whether err is a guard rejection (a qualified HOLD).
func IsGuard(err error) bool {
	return CategoryOf(err) == ErrorCategoryGuard
}

// IsTransient reports whether err should be retried on the next tick.
func IsTransient(err error) bool {
	var be *BotError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	// Unclassified errors from collaborators are assumed transient so the
	// loop keeps running; only configuration errors stop the process.
	return true
}
