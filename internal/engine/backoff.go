package engine

import "time"

// backoffDelay computes min(maxDelay, baseDelay * 2^(attempt-1)) for
// attempt >= 1. Doubling stops at the cap, so large attempt counts never
// overflow.
func backoffDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
