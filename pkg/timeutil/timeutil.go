package timeutil

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// ExponentialCeiling returns the upper bound of the wait that follows the given
// attempt: multiplier * 2^(attempt-1), clamped into [min, max].
// Attempts below 1 are treated as 1.
func ExponentialCeiling(attempt int, param BackoffParam) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	floor := param.minDuration
	if floor < 0 {
		floor = 0
	}
	ceiling := param.maxDuration
	if ceiling < floor {
		ceiling = floor
	}

	exp := float64(param.multiplier) * math.Pow(2, float64(attempt-1))
	if math.IsInf(exp, 0) || exp > float64(ceiling) {
		return ceiling
	}
	if exp < float64(floor) {
		return floor
	}
	return time.Duration(exp)
}

// RandomExponentialDelay draws the wait after the given attempt uniformly
// from [min, ExponentialCeiling(attempt)].
func RandomExponentialDelay(attempt int, rng *rand.Rand, param BackoffParam) time.Duration {
	high := ExponentialCeiling(attempt, param)
	low := param.minDuration
	if low < 0 {
		low = 0
	}
	spread := high - low
	if spread <= 0 || rng == nil {
		return high
	}
	return low + time.Duration(rng.Int63n(int64(spread)+1))
}

// Sleep blocks for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when the wait was cut short.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
