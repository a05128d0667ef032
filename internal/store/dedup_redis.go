package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto-signal-bot/internal/logging"
)

const dedupKeyPrefix = "signal:dedup:"

// RedisDedup keeps dedup identities as Redis keys with a TTL equal to the
// dedup window, so expiry is handled by the server instead of by pruning.
type RedisDedup struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisDedup connects to Redis and verifies the connection. Returns an
// error when the server is unreachable so the caller can fall back to the
// file cache.
func NewRedisDedup(addr, password string, db int, logger *logging.Logger) (*RedisDedup, error) {
	if logger == nil {
		logger = logging.WithComponent("store")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisDedup{client: client, logger: logger}, nil
}

// IsDuplicate checks identity key existence. A Redis error is treated as
// not-duplicate: better a repeated alert than a silently dropped signal.
func (r *RedisDedup) IsDuplicate(key string, now int64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := r.client.Exists(ctx, dedupKeyPrefix+key).Result()
	if err != nil {
		r.logger.Warn("redis dedup lookup failed", "key", key, "error", err)
		return false
	}
	return n > 0
}

// Remember sets the identity key with the remaining window as TTL. The
// serial is stored as the value for correlation when inspecting the cache.
func (r *RedisDedup) Remember(key, serial string, openedAt int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ttl := time.Duration(DedupWindowSeconds) * time.Second
	if age := time.Now().Unix() - openedAt; age > 0 && age < DedupWindowSeconds {
		ttl = time.Duration(DedupWindowSeconds-age) * time.Second
	}

	if err := r.client.Set(ctx, dedupKeyPrefix+key, serial, ttl).Err(); err != nil {
		return fmt.Errorf("redis dedup set: %w", err)
	}
	return nil
}

// Close releases the Redis connection
func (r *RedisDedup) Close() error {
	return r.client.Close()
}

// NewDeduper returns the Redis-backed deduper when an address is configured
// and reachable, otherwise the file-backed cache at cachePath.
func NewDeduper(redisAddr, redisPassword string, redisDB int, cachePath string, logger *logging.Logger) Deduper {
	if logger == nil {
		logger = logging.WithComponent("store")
	}

	if redisAddr != "" {
		rd, err := NewRedisDedup(redisAddr, redisPassword, redisDB, logger)
		if err == nil {
			logger.Info("using redis dedup backend", "addr", redisAddr)
			return rd
		}
		logger.Warn("redis unavailable, falling back to file dedup cache", "error", err)
	}

	return NewSignalCache(cachePath, logger)
}
