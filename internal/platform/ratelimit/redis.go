package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fansite:ratelimit:"

// Redis is a fixed-window limiter shared between instances through INCR/PEXPIRE.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedis connects to url (redis://...) and verifies the connection.
func NewRedis(ctx context.Context, url string, limit int, window time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: ping redis: %w", err)
	}
	return &Redis{client: client, limit: limit, window: window}, nil
}

// Allow increments the counter for key and sets its expiry on the first hit of a window.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := redisKeyPrefix + normaliseKey(key)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: redis expire: %w", err)
		}
	}
	return n <= int64(l.limit), nil
}

// Close releases the Redis connection pool.
func (l *Redis) Close() error {
	return l.client.Close()
}
