package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventsaga/internal/domain/product"
	"eventsaga/internal/failure"
)

// PublishTracker records the outcome of fire-and-forget product publishes.
type PublishTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPublishTracker(client *redis.Client, ttl time.Duration) *PublishTracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PublishTracker{client: client, ttl: ttl}
}

func publishKey(productID string) string {
	return fmt.Sprintf("product-publish:%s", productID)
}

func (t *PublishTracker) Track(ctx context.Context, productID string, status product.PublishStatus) error {
	if err := t.client.Set(ctx, publishKey(productID), string(status), t.ttl).Err(); err != nil {
		return fmt.Errorf("track publish status: %w", err)
	}
	return nil
}

func (t *PublishTracker) Status(ctx context.Context, productID string) (product.PublishStatus, error) {
	val, err := t.client.Get(ctx, publishKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", failure.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get publish status: %w", err)
	}
	return product.PublishStatus(val), nil
}
