package retry

import (
	"time"

	"github.com/rohmanhakim/render-fetch/pkg/timeutil"
)

// RetryParam holds the parameters for retry logic.
// These parameters are passed from outside (e.g., a fetch strategy) and should not
// be known by the retry handler internally.
type RetryParam struct {
	MaxAttempts  int
	RandomSeed   int64
	BackoffParam timeutil.BackoffParam
	// OnRetry, if set, is called after a failed attempt that will be retried,
	// with the delay that is about to be waited.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// NewRetryParam creates a new RetryParam with the given settings.
// A zero randomSeed seeds the backoff jitter from the clock.
func NewRetryParam(
	maxAttempts int,
	randomSeed int64,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		MaxAttempts:  maxAttempts,
		RandomSeed:   randomSeed,
		BackoffParam: backoffParam,
	}
}

// Result is the outcome of one Retry run: either a value or the terminal error,
// plus the number of attempts that were made.
type Result[T any] struct {
	value    T
	err      error
	attempts int
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) Attempts() int {
	return r.attempts
}

func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

func (r Result[T]) IsFailure() bool {
	return r.err != nil
}

// Unwrap returns the value and error as a conventional Go pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}
