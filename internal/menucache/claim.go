package menucache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimPrefix = "menu:claim:"

// Claimer arbitrates the cross-instance single-flight claim per cache key.
type Claimer interface {
	TryClaim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisClaimer implements Claimer with SETNX and a TTL, so a crashed claim
// holder cannot block the key forever.
type RedisClaimer struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClaimer creates a Redis-backed claimer.
func NewRedisClaimer(client *redis.Client, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{client: client, ttl: ttl}
}

// TryClaim atomically claims the key. Returns false when another client
// already holds the claim.
func (c *RedisClaimer) TryClaim(ctx context.Context, key string) (bool, error) {
	return c.client.SetNX(ctx, claimPrefix+key, 1, c.ttl).Result()
}

// Release frees the claim early (after a failed fetch) so a later client may
// retry without waiting out the TTL.
func (c *RedisClaimer) Release(ctx context.Context, key string) error {
	return c.client.Del(ctx, claimPrefix+key).Err()
}
