// Package cache implements the cache-aside status store on Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"csecbridge/internal/domain"
)

var _ domain.StatusCache = (*RedisStatusCache)(nil)

// RedisStatusCache keeps StatusRecord snapshots under a per-request key
// with a fixed TTL. It is an availability optimization only: the state
// store remains the source of truth, and readers fall through on any miss.
type RedisStatusCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStatusCache(client redis.UniversalClient, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{client: client, ttl: ttl}
}

func statusKey(correlationID string) string { return "cache:status:" + correlationID }

// Get returns the cached record, or (nil, nil) on a miss. A corrupt cached
// value is treated as a miss rather than surfaced.
func (c *RedisStatusCache) Get(ctx context.Context, correlationID string) (*domain.StatusRecord, error) {
	raw, err := c.client.Get(ctx, statusKey(correlationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrPersistence("status cache get: %v", err)
	}
	var rec domain.StatusRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// Set stores the record with the configured TTL.
func (c *RedisStatusCache) Set(ctx context.Context, rec *domain.StatusRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return domain.ErrPersistence("status cache encode: %v", err)
	}
	if err := c.client.Set(ctx, statusKey(rec.CorrelationID), raw, c.ttl).Err(); err != nil {
		return domain.ErrPersistence("status cache set: %v", err)
	}
	return nil
}
