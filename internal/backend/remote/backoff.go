package remote

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// backoff implements exponential backoff with optional jitter.
type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64

	mu   sync.Mutex
	rand *rand.Rand
}

func newBackoff(base, max time.Duration, jitter float64) *backoff {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	if max <= 0 {
		max = time.Second
	}
	if jitter < 0 {
		jitter = 0
	}
	return &backoff{
		base:   base,
		max:    max,
		jitter: jitter,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// forAttempt returns the delay before retry number attempt (0-indexed).
func (b *backoff) forAttempt(attempt int) time.Duration {
	if attempt <= 0 {
		return b.addJitter(b.base)
	}

	exp := float64(uint(1) << uint(attempt))
	delay := time.Duration(float64(b.base) * exp)
	if delay <= 0 || delay > b.max {
		delay = b.max
	}
	return b.addJitter(delay)
}

func (b *backoff) addJitter(delay time.Duration) time.Duration {
	if b.jitter == 0 || delay <= 0 {
		return delay
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	factor := 1 + (b.rand.Float64()*2-1)*math.Min(b.jitter, 1)
	if factor < 0 {
		factor = 0
	}
	return time.Duration(float64(delay) * factor)
}
