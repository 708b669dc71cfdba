package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ruleflow:token:"

// RedisTokenCache shares tokens between processes, so the API server and
// the scheduler daemon reuse each other's acquisitions. The five-minute
// validity margin is enforced by shortening the stored TTL rather than by
// checking expiry on read.
type RedisTokenCache struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisTokenCache connects to Redis at addr (default localhost:6379).
func NewRedisTokenCache(ctx context.Context, logger *slog.Logger, addr, password string, db int) (*RedisTokenCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis token cache", "addr", addr, "db", db)

	return &RedisTokenCache{client: client, logger: logger}, nil
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool) {
	token, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "Failed to read token from Redis", "key", key, "error", err)
		}

		return "", false
	}

	return token, true
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, expiresIn time.Duration) {
	ttl := expiresIn - validityMargin
	if ttl <= 0 {
		// Shorter-lived tokens than the margin are unusable on the next
		// read anyway, skip the round trip.
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+key, token, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to store token in Redis", "key", key, "error", err)
	}
}

func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}
