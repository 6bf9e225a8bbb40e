package chainclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsExponentiallyWithinJitterBounds(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 10 * time.Second

	tests := []struct {
		name    string
		attempt int
		minBase time.Duration
		maxBase time.Duration
	}{
		{name: "first attempt", attempt: 1, minBase: 100 * time.Millisecond, maxBase: 100 * time.Millisecond},
		{name: "second attempt doubles", attempt: 2, minBase: 200 * time.Millisecond, maxBase: 200 * time.Millisecond},
		{name: "third attempt quadruples", attempt: 3, minBase: 400 * time.Millisecond, maxBase: 400 * time.Millisecond},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				d := backoff(tc.attempt, initial, max)
				assert.GreaterOrEqual(t, d, time.Duration(float64(tc.minBase)*0.8))
				assert.LessOrEqual(t, d, time.Duration(float64(tc.maxBase)*1.2))
			}
		})
	}
}

func TestBackoff_CapsAtMax(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 1 * time.Second

	for i := 0; i < 50; i++ {
		d := backoff(20, initial, max)
		assert.LessOrEqual(t, d, time.Duration(float64(max)*1.2))
	}
}

func TestBackoff_ClampsNonPositiveAttemptToOne(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 10 * time.Second

	for i := 0; i < 50; i++ {
		d := backoff(0, initial, max)
		assert.GreaterOrEqual(t, d, time.Duration(float64(initial)*0.8))
		assert.LessOrEqual(t, d, time.Duration(float64(initial)*1.2))
	}
}
