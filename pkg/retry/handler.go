package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/rohmanhakim/render-fetch/pkg/failure"
	"github.com/rohmanhakim/render-fetch/pkg/timeutil"
)

// Retry executes fn with retry logic.
// It calls fn up to MaxAttempts times, waiting a randomized exponential backoff
// between attempts. Only errors accepted by failure.IsRetryable trigger another
// attempt; any other error is returned immediately, as-is.
//
// When every attempt fails, the result carries a *RetryError whose Unwrap
// yields the last attempt's error. Waits between attempts end early when ctx
// is done.
//
// Type parameter T represents the return type of the function being retried.
func Retry[T any](
	ctx context.Context,
	retryParam RetryParam,
	fn func(ctx context.Context, attempt int) (T, error),
) Result[T] {
	var zero T

	if retryParam.MaxAttempts < 1 {
		return Result[T]{
			value: zero,
			err: &RetryError{
				Message: "max attempt cannot be 0",
				Cause:   ErrZeroAttempt,
			},
		}
	}

	seed := retryParam.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var lastErr error
	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		value, err := fn(ctx, attempt)
		if err == nil {
			return Result[T]{value: value, attempts: attempt}
		}
		lastErr = err

		if !failure.IsRetryable(err) {
			return Result[T]{value: zero, err: err, attempts: attempt}
		}

		if attempt == retryParam.MaxAttempts {
			break
		}

		delay := timeutil.RandomExponentialDelay(attempt, rng, retryParam.BackoffParam)
		if retryParam.OnRetry != nil {
			retryParam.OnRetry(attempt, err, delay)
		}

		if ctxErr := timeutil.Sleep(ctx, delay); ctxErr != nil {
			return Result[T]{
				value: zero,
				err: &RetryError{
					Cause:      ErrCanceled,
					Attempts:   attempt,
					Err:        lastErr,
					ContextErr: ctxErr,
				},
				attempts: attempt,
			}
		}
	}

	return Result[T]{
		value: zero,
		err: &RetryError{
			Cause:    ErrExhaustedAttempts,
			Attempts: retryParam.MaxAttempts,
			Err:      lastErr,
		},
		attempts: retryParam.MaxAttempts,
	}
}
