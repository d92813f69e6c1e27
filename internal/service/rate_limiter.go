package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter is a sliding window log limiter backed by a Redis sorted set per key
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// Allow records the request if it fits in the window. The request is added
// and the window counted in one MULTI, so concurrent callers see distinct
// counts; a request over the limit is removed again.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := r.now()
	windowStart := now.Add(-window)
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	member := uuid.NewString()

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := r.redis.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
		pipe.ZAdd(ctx, redisKey, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: member,
		})
		card = pipe.ZCard(ctx, redisKey)
		oldest = pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
		pipe.Expire(ctx, redisKey, window+time.Minute)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to record request: %w", err)
	}

	count := int(card.Val())
	if count <= limit {
		return Decision{Allowed: true, Limit: limit, Remaining: limit - count}, nil
	}

	if err := r.redis.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return Decision{}, fmt.Errorf("failed to roll back rejected request: %w", err)
	}

	decision := Decision{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: window}
	if entries := oldest.Val(); len(entries) > 0 {
		oldestAt := time.Unix(0, int64(entries[0].Score))
		decision.RetryAfter = window - now.Sub(oldestAt)
	}
	return decision, nil
}
