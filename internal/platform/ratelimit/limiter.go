// Package ratelimit throttles auth form submissions with fixed-window
// counters in Redis: INCR the key, set its TTL on the first hit, reject once
// the count passes the limit. Keys look like "authrl:<action>:<client>".
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "authrl:"

type Config struct {
	MaxAttempts int
	Window      time.Duration
}

type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// Allow counts one attempt of action by client. It returns ErrRateLimited
// when the window's budget is spent and wraps ErrRedisUnavailable when the
// counter cannot be read; callers decide whether to fail open.
func (l *Limiter) Allow(ctx context.Context, action, client string) error {
	key := Key(action, client)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func Key(action, client string) string {
	return keyPrefix + action + ":" + client
}
