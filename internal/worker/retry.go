package worker

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy is an exponential backoff. Jitter is the fraction (0..1) of
// each delay that is randomized, so that tasks failing together do not retry
// together. Zero values fall back to 1s initial delay and factor 2.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64
}

// Exhausted reports whether attempt (1-based) is past the retry budget.
// A policy without MaxRetries never gives up.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return r.MaxRetries > 0 && attempt >= r.MaxRetries
}

// NextDelay returns the wait before attempt (1-based), capped by MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	attempt = max(attempt, 1)
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		// overflow
		d = time.Second
	}

	if j := min(r.Jitter, 1); j > 0 {
		spread := time.Duration(float64(d) * j)
		d = d - spread + time.Duration(rand.Int64N(int64(spread)+1))
	}
	return d
}
