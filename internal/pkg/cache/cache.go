package cache

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/ManuelReschke/PlanFox/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// GetInt retrieves an integer value from the cache by key
func GetInt(key string) (int, error) {
	val, err := GetClient().Get(ctx, key).Int()
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// IncrWithWindow atomically increments a counter, starting a fixed expiry
// window on first increment. Returns the counter value after the increment.
func IncrWithWindow(key string, window time.Duration) (int64, error) {
	rdb := GetClient()
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// TTL returns the remaining time-to-live for a key
func TTL(key string) (time.Duration, error) {
	return GetClient().TTL(ctx, key).Result()
}

// FindKeysByPattern retrieves keys for a Redis match pattern using SCAN.
func FindKeysByPattern(pattern string) ([]string, error) {
	rdb := GetClient()

	uniqueKeys := make(map[string]struct{})
	var cursor uint64
	for {
		keys, nextCursor, err := rdb.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			uniqueKeys[key] = struct{}{}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	keys := make([]string, 0, len(uniqueKeys))
	for key := range uniqueKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteByPattern removes all keys matching a Redis pattern and returns the
// number of deleted keys.
func DeleteByPattern(pattern string) (int64, error) {
	keys, err := FindKeysByPattern(pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return GetClient().Del(ctx, keys...).Result()
}
