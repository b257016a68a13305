// Package cache is a JSON read-through cache on Redis. When Redis is not
// reachable every call degrades to a miss and writes are dropped.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rituelsdebene/boutique/config"
	"github.com/rituelsdebene/boutique/pkg/metrics"
)

var RDB *redis.Client

// opTimeout keeps a slow Redis from stalling request handlers.
const opTimeout = 500 * time.Millisecond

// Connect initialises the Redis client and verifies it with a ping.
func Connect() error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		RDB = nil
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	RDB = client
	return nil
}

// Use installs an existing client. nil disables caching.
func Use(client *redis.Client) {
	RDB = client
}

// Get unmarshals the cached value into dest. It reports a hit.
func Get(key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := RDB.Get(ctx, key).Bytes()
	if err != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}

	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true
}

// Set stores value under key for ttl.
func Set(key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return RDB.Set(ctx, key, data, ttl).Err()
}

// Del removes keys.
func Del(keys ...string) error {
	if RDB == nil || len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return RDB.Del(ctx, keys...).Err()
}

// DelPrefix removes every key starting with prefix. Keys are found with
// SCAN so a large keyspace does not block Redis.
func DelPrefix(prefix string) error {
	if RDB == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*opTimeout)
	defer cancel()

	var keys []string
	iter := RDB.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return RDB.Del(ctx, keys...).Err()
}

// Remember returns the cached value for key or calls fn, caches its result
// and returns it.
func Remember[T any](key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var out T
	if Get(key, &out) {
		return out, nil
	}

	out, err := fn()
	if err != nil {
		return out, err
	}
	_ = Set(key, out, ttl)
	return out, nil
}
