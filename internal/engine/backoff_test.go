package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_DoublesPerAttemptUpToCap(t *testing.T) {
	base := 1 * time.Second
	max := 30 * time.Second

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, expected := range want {
		attempt := i + 1
		assert.Equal(t, expected, backoffDelay(attempt, base, max), "attempt %d", attempt)
	}
}

func TestBackoffDelay_StaysAtCapForHugeAttempts(t *testing.T) {
	// 2^1000 would overflow many times over; doubling must stop at the cap.
	assert.Equal(t, 30*time.Second, backoffDelay(1000, time.Second, 30*time.Second))
}

func TestBackoffDelay_TreatsNonPositiveAttemptAsFirst(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(0, time.Second, 30*time.Second))
	assert.Equal(t, time.Second, backoffDelay(-3, time.Second, 30*time.Second))
}

func TestBackoffDelay_BaseAboveCapIsClamped(t *testing.T) {
	assert.Equal(t, 5*time.Second, backoffDelay(1, 10*time.Second, 5*time.Second))
}
