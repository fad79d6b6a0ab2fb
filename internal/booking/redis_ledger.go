package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ledgerTTL = 30 * 24 * time.Hour

// RedisLedger is the shared Ledger for multi-instance deployments.
type RedisLedger struct {
	redis *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	if client == nil {
		panic("booking: redis client cannot be nil")
	}
	return &RedisLedger{redis: client}
}

var _ Ledger = (*RedisLedger)(nil)

func (l *RedisLedger) Get(ctx context.Context, conversationID string) (string, bool, error) {
	id, err := l.redis.Get(ctx, ledgerKey(conversationID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("booking: failed to read ledger: %w", err)
	}
	return id, true, nil
}

func (l *RedisLedger) Put(ctx context.Context, conversationID, confirmationID string) error {
	if err := l.redis.Set(ctx, ledgerKey(conversationID), confirmationID, ledgerTTL).Err(); err != nil {
		return fmt.Errorf("booking: failed to write ledger: %w", err)
	}
	return nil
}

func ledgerKey(conversationID string) string {
	return fmt.Sprintf("booking:confirmed:%s", conversationID)
}
