package validation

import (
	"sync"
	"time"

	"github.com/ManuelReschke/PlanFox/internal/pkg/cache"
)

// Counter is a shared counter with window-based expiry, used for the rate
// limiter and the daily creation cap. Increments are atomic at the storage
// layer to avoid undercounting under concurrent load.
type Counter interface {
	Increment(key string, window time.Duration) (int64, error)
	Current(key string) (int64, error)
	Remaining(key string) (time.Duration, error)
}

// redisCounter implements Counter on the shared Redis cache.
type redisCounter struct{}

// NewRedisCounter returns the Redis-backed counter.
func NewRedisCounter() Counter {
	return &redisCounter{}
}

func (c *redisCounter) Increment(key string, window time.Duration) (int64, error) {
	return cache.IncrWithWindow(key, window)
}

func (c *redisCounter) Current(key string) (int64, error) {
	val, err := cache.GetInt(key)
	if err != nil {
		// Missing key means zero, the caller cannot tell the difference.
		return 0, nil
	}
	return int64(val), nil
}

func (c *redisCounter) Remaining(key string) (time.Duration, error) {
	return cache.TTL(key)
}

type memoryCount struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter is an in-process Counter for tests and single-node setups.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]memoryCount
	now    func() time.Time
}

// NewMemoryCounter returns an empty in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		counts: make(map[string]memoryCount),
		now:    time.Now,
	}
}

func (c *MemoryCounter) Increment(key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.counts[key]
	if !ok || c.now().After(entry.expiresAt) {
		entry = memoryCount{count: 0, expiresAt: c.now().Add(window)}
	}
	entry.count++
	c.counts[key] = entry
	return entry.count, nil
}

func (c *MemoryCounter) Current(key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.counts[key]
	if !ok || c.now().After(entry.expiresAt) {
		return 0, nil
	}
	return entry.count, nil
}

func (c *MemoryCounter) Remaining(key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.counts[key]
	if !ok {
		return 0, nil
	}
	remaining := entry.expiresAt.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
