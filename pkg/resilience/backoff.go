// Package resilience holds retry backoff and timeout budgets shared by the
// reconciliation and receipt paths.
package resilience

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy yields the wait before retry attempt n (0-indexed).
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically and spreads concurrent
// retries with jitter.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64 // fraction of the delay, e.g. 0.1 for ±10%
}

// DefaultExponentialBackoff tunes retries for in-request work such as
// receipt issuance after a reconciled payment: 100ms doubling to a 30s cap.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// DeliveryBackoff tunes retries for notification sends, which tolerate
// longer waits: 1s doubling to the same 30s cap.
func DeliveryBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NextDelay returns BaseDelay * Multiplier^attempt, capped at MaxDelay,
// with ±Jitter applied.
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return eb.BaseDelay
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	spread := delay * eb.Jitter
	delay += (rand.Float64()*2 - 1) * spread

	if delay < 0 {
		return eb.BaseDelay
	}
	return time.Duration(delay)
}
