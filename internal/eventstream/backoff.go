package eventstream

import (
	"math/rand"
	"time"
)

// jitterFraction is the upper bound of the random jitter added to each
// reconnect delay, as a fraction of the base delay. Jitter prevents a
// fleet of bridges from hammering a recovering hub in lockstep.
const jitterFraction = 0.1

// baseDelay returns the deterministic portion of the reconnect delay for
// the given attempt number: an exponential doubling capped at maxDelay.
// Attempt numbering starts at 1 for the first retry.
func baseDelay(attempt int, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	// Guard the shift: beyond 62 doublings the cap has long since won.
	if attempt > 62 {
		return maxDelay
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// withJitter adds a uniformly random jitter in [0, jitterFraction*delay)
// to the base delay.
func withJitter(delay time.Duration, rng *rand.Rand) time.Duration {
	if delay <= 0 {
		return 0
	}
	jitter := time.Duration(rng.Float64() * jitterFraction * float64(delay))
	return delay + jitter
}
