package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding-window rate limiter on Redis sorted sets. Each hit is
// a uniquely-membered entry scored by its timestamp; the window is enforced
// by trimming entries older than the window before counting.
type Limiter struct {
	R      *redis.Client
	Prefix string
}

// Allow records a hit for the key and reports whether it stays within max
// hits per window. A nil client or non-positive limits disable limiting.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	if l.R == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}

	now := time.Now()
	reset = now.Add(window)
	cutoff := float64(now.Add(-window).UnixNano())

	redisKey := l.Prefix + ":ratelimit:" + key
	member := uuid.NewString()

	pipe := l.R.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, reset, fmt.Errorf("ratelimit: %s: %w", key, err)
	}

	hits := int(count.Val())
	remaining = max - hits
	if remaining < 0 {
		remaining = 0
	}
	return hits <= max, remaining, reset, nil
}
