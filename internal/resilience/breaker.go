package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a breaker rejects a call without running
// the underlying operation.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Breaker is a per-resource consecutive-failure guard. It opens once the
// failure threshold is reached and auto-resets after the cooldown elapses.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
}

// Breaker returns the circuit breaker for the named resource, creating it on
// first use.
func (m *Manager) Breaker(name string) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	b := &Breaker{
		name:      name,
		threshold: m.breakerThreshold,
		cooldown:  m.breakerCooldown,
		now:       m.now,
	}
	m.breakers[name] = b
	return b
}

// WithBreaker runs fn guarded by the named breaker.
func (m *Manager) WithBreaker(ctx context.Context, name string, fn func(context.Context) error) error {
	b := m.Breaker(name)
	if !b.Allow() {
		m.logger.Warn().Str("resource", name).Msg("circuit open, failing fast")
		return ErrCircuitOpen
	}
	err := fn(ctx)
	b.Record(err)
	return err
}

// Allow reports whether a call may proceed, resetting an open breaker whose
// cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		b.open = false
		b.failures = 0
		return true
	}
	return false
}

// Record feeds the outcome of a call into the breaker state.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openedAt = b.now()
	}
}

// State reports the breaker's current observable state.
func (b *Breaker) State() (open bool, failures int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open, b.failures
}
