package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a TTL key-value store for provider results. Implementations must
// be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an in-process TTL cache.
func NewMemoryCache() Cache {
	return &memoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

func (c *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache returns a cache backed by Redis. Failures degrade to cache
// misses; the cache never propagates Redis errors to the hot path.
func NewRedisCache(client *redis.Client, prefix string) Cache {
	if prefix == "" {
		prefix = "mathgrade"
	}
	return &redisCache{client: client, prefix: prefix}
}

func (c *redisCache) key(key string) string {
	return c.prefix + ":" + key
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		return "", false
	}
	return value, true
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	_ = c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	_ = c.client.Del(ctx, c.key(key)).Err()
}
