package resilience

import (
	"sync"
	"time"
)

// tokenBucket is a classic refill-on-demand bucket.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	rate     float64
	burst    float64
	lastFill time.Time
}

// Allow reports whether one request for the named resource may proceed under
// a token-bucket limit of rate tokens/second with the given burst capacity.
func (m *Manager) Allow(name string, rate float64, burst int) bool {
	if rate <= 0 || burst <= 0 {
		return true
	}

	m.mu.Lock()
	bucket, ok := m.buckets[name]
	if !ok {
		bucket = &tokenBucket{
			tokens:   float64(burst),
			rate:     rate,
			burst:    float64(burst),
			lastFill: m.now(),
		}
		m.buckets[name] = bucket
	}
	m.mu.Unlock()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := m.now()
	elapsed := now.Sub(bucket.lastFill).Seconds()
	bucket.lastFill = now
	bucket.tokens += elapsed * bucket.rate
	if bucket.tokens > bucket.burst {
		bucket.tokens = bucket.burst
	}
	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}
