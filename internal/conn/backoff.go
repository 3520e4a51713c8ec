package conn

import "time"

// reconnector computes reconnect delays: baseline delay grown by a
// multiplicative factor per failed attempt, capped at a maximum. The
// attempt counter resets on any successful connection.
type reconnector struct {
	base        time.Duration
	max         time.Duration
	multiplier  float64
	maxAttempts int
	attempt     int
}

func newReconnector(base, max time.Duration, multiplier float64, maxAttempts int) *reconnector {
	return &reconnector{
		base:        base,
		max:         max,
		multiplier:  multiplier,
		maxAttempts: maxAttempts,
	}
}

// exhausted reports whether the maximum attempt count has been reached.
func (r *reconnector) exhausted() bool {
	return r.maxAttempts > 0 && r.attempt >= r.maxAttempts
}

// nextDelay returns the delay before the next attempt and advances the counter.
func (r *reconnector) nextDelay() time.Duration {
	delay := r.base
	for i := 0; i < r.attempt; i++ {
		delay = time.Duration(float64(delay) * r.multiplier)
		if delay >= r.max {
			delay = r.max
			break
		}
	}
	r.attempt++
	return delay
}

// reset returns the reconnector to its baseline.
func (r *reconnector) reset() {
	r.attempt = 0
}
