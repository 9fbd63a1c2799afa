// Package resilience provides the retry, circuit-breaker, timeout, cache,
// rate-limit and batching machinery wrapped around every external provider
// call. All state lives on an injectable Manager instance rather than in
// package globals, so tests get fresh state and each map is guarded by its
// own lock.
package resilience

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options configures a Manager.
type Options struct {
	Logger zerolog.Logger
	// Redis, when set, backs the TTL cache; otherwise an in-memory cache is
	// used.
	Redis       *redis.Client
	CachePrefix string

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Manager owns the process-wide resilience state: one circuit breaker per
// resource name, one token bucket per resource name and a single TTL cache.
type Manager struct {
	logger zerolog.Logger

	breakerThreshold int
	breakerCooldown  time.Duration

	mu       sync.Mutex
	breakers map[string]*Breaker
	buckets  map[string]*tokenBucket

	cache Cache
	now   func() time.Time
}

// NewManager constructs a Manager with fresh state.
func NewManager(opts Options) *Manager {
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	var cache Cache
	if opts.Redis != nil {
		cache = NewRedisCache(opts.Redis, opts.CachePrefix)
	} else {
		cache = NewMemoryCache()
	}

	return &Manager{
		logger:           opts.Logger.With().Str("component", "resilience").Logger(),
		breakerThreshold: opts.BreakerThreshold,
		breakerCooldown:  opts.BreakerCooldown,
		breakers:         make(map[string]*Breaker),
		buckets:          make(map[string]*tokenBucket),
		cache:            cache,
		now:              time.Now,
	}
}

// Cache exposes the TTL cache shared by all callers of this Manager.
func (m *Manager) Cache() Cache {
	return m.cache
}
