package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ClaimCache implements ports.ClaimCache. It is the fast path only: a hit
// short-circuits provider retry storms, a miss falls through to the durable
// claim in Postgres. Losing the whole cache is safe.
type ClaimCache struct {
	client *goredis.Client
	prefix string
}

// NewClaimCache creates a Redis-backed event claim cache.
func NewClaimCache(client *goredis.Client) *ClaimCache {
	return &ClaimCache{
		client: client,
		prefix: "event:",
	}
}

// Seen reports whether the event marker exists.
func (c *ClaimCache) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim seen: %w", err)
	}
	return n > 0, nil
}

// Mark records the marker with a TTL. Called after commit; NX keeps a
// concurrent marker's earlier TTL intact.
func (c *ClaimCache) Mark(ctx context.Context, eventID string, ttl time.Duration) error {
	_, err := c.client.SetArgs(ctx, c.prefix+eventID, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis claim mark: %w", err)
	}
	return nil
}
