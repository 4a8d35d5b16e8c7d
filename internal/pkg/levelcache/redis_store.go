package levelcache

import (
	"errors"
	"strconv"
	"time"

	"github.com/ManuelReschke/PlanFox/internal/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// redisStore backs the shared cache tier with the process-wide Redis client.
type redisStore struct{}

// NewRedisStore returns the Redis-backed shared tier.
func NewRedisStore() SharedStore {
	return &redisStore{}
}

func (r *redisStore) Get(key string) (uint, bool, error) {
	val, err := cache.Get(key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		// Corrupt entry, drop it and report a miss.
		_ = cache.Delete(key)
		return 0, false, nil
	}
	return uint(id), true, nil
}

func (r *redisStore) Set(key string, value uint, ttl time.Duration) error {
	return cache.Set(key, strconv.FormatUint(uint64(value), 10), ttl)
}

func (r *redisStore) Delete(key string) error {
	return cache.Delete(key)
}

func (r *redisStore) Flush(pattern string) error {
	_, err := cache.DeleteByPattern(pattern)
	return err
}
