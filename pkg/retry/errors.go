package retry

import (
	"fmt"

	"github.com/rohmanhakim/render-fetch/pkg/failure"
)

type RetryErrorCause string

const (
	ErrZeroAttempt       RetryErrorCause = "zero attempt"
	ErrExhaustedAttempts RetryErrorCause = "exhausted attempt"
	ErrCanceled          RetryErrorCause = "canceled"
)

type RetryError struct {
	Message  string
	Cause    RetryErrorCause
	Attempts int
	// Err is the error of the last attempt, nil for ErrZeroAttempt.
	Err error
	// ContextErr is set when the wait between attempts was cut short.
	ContextErr error
}

func (e *RetryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retry error: %s after %d attempt(s): %v", e.Cause, e.Attempts, e.Err)
	}
	return fmt.Sprintf("retry error: %s, %s", e.Cause, e.Message)
}

func (e *RetryError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// IsRetryable is always false: the retry budget is already spent.
func (e *RetryError) IsRetryable() bool {
	return false
}

// Unwrap exposes the last attempt's error and, if any, the context error,
// so errors.As can reach the underlying transport failure.
func (e *RetryError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.ContextErr != nil {
		errs = append(errs, e.ContextErr)
	}
	return errs
}

// Is allows errors.Is to match RetryError types
func (e *RetryError) Is(target error) bool {
	_, ok := target.(*RetryError)
	return ok
}
