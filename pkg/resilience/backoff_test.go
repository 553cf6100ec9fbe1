package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0, // deterministic
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{6, 6400 * time.Millisecond},
		{7, 10 * time.Second}, // capped
		{20, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoff_NegativeAttemptUsesBase(t *testing.T) {
	backoff := DefaultExponentialBackoff()
	assert.Equal(t, backoff.BaseDelay, backoff.NextDelay(-1))
}

func TestExponentialBackoff_JitterStaysInBand(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}

	// Attempt 3 centers on 800ms; ±10% keeps every sample in [720ms, 880ms].
	varied := false
	first := backoff.NextDelay(3)
	for i := 0; i < 100; i++ {
		d := backoff.NextDelay(3)
		assert.GreaterOrEqual(t, d, 720*time.Millisecond)
		assert.LessOrEqual(t, d, 880*time.Millisecond)
		if d != first {
			varied = true
		}
	}
	assert.True(t, varied, "jitter should produce different delays")
}

func TestDeliveryBackoff_Sequence(t *testing.T) {
	backoff := DeliveryBackoff()
	backoff.Jitter = 0

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
	}
	for attempt, expected := range want {
		assert.Equal(t, expected, backoff.NextDelay(attempt), "attempt %d", attempt)
	}
}
