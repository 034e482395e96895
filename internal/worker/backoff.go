package worker

import (
	"math/rand"
	"time"
)

// backoffDelay computes an exponential delay with full jitter for the given
// consecutive-failure count. Jitter keeps a fleet of workers from hammering
// a recovering store in lockstep.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	d := base
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}
