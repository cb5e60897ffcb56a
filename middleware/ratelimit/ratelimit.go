// Package ratelimit provides a fixed-window request limiter backed by
// the shared cache, so limits hold across gateway nodes.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter interface {
	// Allow reports whether one more request under key fits inside
	// limit per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// WindowLimiter counts requests in cache-side windows. failOpen
// controls what happens when the cache is unreachable: auth and chat
// should keep working through a cache outage, so the server runs with
// it on.
type WindowLimiter struct {
	rdb      redis.UniversalClient
	logger   *zap.Logger
	failOpen bool
}

func NewWindowLimiter(rdb redis.UniversalClient, logger *zap.Logger, failOpen bool) *WindowLimiter {
	return &WindowLimiter{rdb: rdb, logger: logger, failOpen: failOpen}
}

func (l *WindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := bucketKey(key, time.Now(), window)

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limit check failed",
			zap.String("key", key), zap.Error(err))
		if l.failOpen {
			return true, nil
		}
		return false, fmt.Errorf("rate limit check: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

func (l *WindowLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := l.rdb.Get(ctx, bucketKey(key, time.Now(), window)).Int64()
	if err == redis.Nil {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rate limit read: %w", err)
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func bucketKey(key string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, now.Unix()/int64(window.Seconds()))
}
