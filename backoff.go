package certstream

import "time"

// Default reconnect delays.
const (
	DefaultBackoffFloor   = 500 * time.Millisecond
	DefaultBackoffCeiling = 5 * time.Second
	DefaultBackoffFactor  = 2
)

// Backoff computes reconnect delays. The zero value is not usable; start
// from DefaultBackoff.
type Backoff struct {
	Floor   time.Duration
	Ceiling time.Duration
	Factor  int
}

// DefaultBackoff returns the 500ms..5s doubling policy.
func DefaultBackoff() Backoff {
	return Backoff{
		Floor:   DefaultBackoffFloor,
		Ceiling: DefaultBackoffCeiling,
		Factor:  DefaultBackoffFactor,
	}
}

// Clamp bounds d to [Floor, Ceiling].
func (b Backoff) Clamp(d time.Duration) time.Duration {
	if d < b.Floor {
		return b.Floor
	}
	if d > b.Ceiling {
		return b.Ceiling
	}
	return d
}

// Next returns how long to wait after a cycle ended and the delay to carry
// into the following cycle. A healthy cycle (one that delivered at least
// one event) resets to Floor and does not grow the delay; otherwise the
// current delay is waited and then multiplied by Factor, capped at Ceiling.
func (b Backoff) Next(current time.Duration, healthy bool) (wait, next time.Duration) {
	if healthy {
		return b.Floor, b.Floor
	}

	wait = b.Clamp(current)
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	// Past Ceiling/factor the product only needs capping; checking first
	// also keeps it from overflowing.
	if wait > b.Ceiling/time.Duration(factor) {
		return wait, b.Ceiling
	}
	return wait, b.Clamp(wait * time.Duration(factor))
}

// Delay returns the wait before the k-th consecutive failed attempt
// (k starting at 1): min(Ceiling, Floor * Factor^(k-1)).
func (b Backoff) Delay(k int) time.Duration {
	d := b.Floor
	for i := 1; i < k; i++ {
		_, d = b.Next(d, false)
	}
	return b.Clamp(d)
}
