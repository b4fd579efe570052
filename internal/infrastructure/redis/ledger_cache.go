package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LedgerCache remembers processed message ids so duplicate deliveries can be skipped without a
// database round trip. Postgres stays authoritative: a miss here means "ask the ledger".
type LedgerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLedgerCache(client *redis.Client, ttl time.Duration) *LedgerCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LedgerCache{client: client, ttl: ttl}
}

func ledgerKey(messageID string) string {
	return fmt.Sprintf("processed:%s", messageID)
}

func (c *LedgerCache) Seen(ctx context.Context, messageID string) (bool, error) {
	err := c.client.Get(ctx, ledgerKey(messageID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get ledger cache: %w", err)
	}
	return true, nil
}

func (c *LedgerCache) MarkSeen(ctx context.Context, messageID string) error {
	if err := c.client.Set(ctx, ledgerKey(messageID), "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("set ledger cache: %w", err)
	}
	return nil
}
