package timeutil

import "time"

// Randomized exponential backoff parameters
// example:
//
//	multiplier := 1 * time.Second  // unit of the exponential curve
//	minDuration := 3 * time.Second // floor for every wait
//	maxDuration := 10 * time.Second // cap for every wait
//
// The n-th wait is drawn uniformly from [min, clamp(multiplier * 2^(n-1), min, max)].
type BackoffParam struct {
	multiplier  time.Duration
	minDuration time.Duration
	maxDuration time.Duration
}

func NewBackoffParam(
	multiplier time.Duration,
	minDuration time.Duration,
	maxDuration time.Duration,
) BackoffParam {
	return BackoffParam{
		multiplier:  multiplier,
		minDuration: minDuration,
		maxDuration: maxDuration,
	}
}

func (b BackoffParam) Multiplier() time.Duration {
	return b.multiplier
}

func (b BackoffParam) MinDuration() time.Duration {
	return b.minDuration
}

func (b BackoffParam) MaxDuration() time.Duration {
	return b.maxDuration
}

// WithMinDuration returns a copy of b with a different floor.
func (b BackoffParam) WithMinDuration(minDuration time.Duration) BackoffParam {
	b.minDuration = minDuration
	return b
}
