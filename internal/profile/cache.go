package profile

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached layers a Redis cache over display-name lookups. Chat events trigger
// one name lookup each, and senders repeat, so the cache absorbs most of the
// read traffic. Tokens are deliberately not cached: a stale cached token
// would defeat the invalid-token clearing path.
type Cached struct {
	inner API
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCached wraps inner with a Redis display-name cache. A nil client
// disables caching, so callers can wire it unconditionally.
func NewCached(inner API, rdb *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *Cached) Token(ctx context.Context, profileID string) (string, bool, error) {
	return c.inner.Token(ctx, profileID)
}

func (c *Cached) ClearToken(ctx context.Context, profileID string) error {
	return c.inner.ClearToken(ctx, profileID)
}

func (c *Cached) DisplayName(ctx context.Context, profileID string) (string, bool, error) {
	key := "profile:name:" + profileID

	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, key).Result()
		if err == nil {
			return cached, true, nil
		}
		if err != redis.Nil {
			log.Printf("redis error reading %s: %v", key, err)
		}
	}

	name, found, err := c.inner.DisplayName(ctx, profileID)
	if err != nil || !found {
		return name, found, err
	}

	if c.rdb != nil && name != "" {
		if err := c.rdb.Set(ctx, key, name, c.ttl).Err(); err != nil {
			log.Printf("redis error caching %s: %v", key, err)
		}
	}
	return name, true, nil
}
