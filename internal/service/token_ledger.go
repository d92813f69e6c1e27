package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/account-service/pkg/database"
)

// RedisTokenLedger keeps superseded refresh token digests in Redis until they expire
type RedisTokenLedger struct {
	redis *database.Redis
}

// NewRedisTokenLedger creates a new token ledger
func NewRedisTokenLedger(redis *database.Redis) *RedisTokenLedger {
	return &RedisTokenLedger{redis: redis}
}

func supersededKey(digest string) string {
	return fmt.Sprintf("refresh:superseded:%s", digest)
}

// Supersede records a digest. Tokens that are already expired are not recorded.
func (l *RedisTokenLedger) Supersede(ctx context.Context, digest string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := l.redis.Client.Set(ctx, supersededKey(digest), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to record superseded token: %w", err)
	}
	return nil
}

// WasSuperseded checks if a digest was recorded
func (l *RedisTokenLedger) WasSuperseded(ctx context.Context, digest string) (bool, error) {
	exists, err := l.redis.Client.Exists(ctx, supersededKey(digest)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check superseded token: %w", err)
	}
	return exists > 0, nil
}
