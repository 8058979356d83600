package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "webhook:event:"

// RedisReplayCache is the multi-node webhook replay cache. SETNX with a TTL
// gives an atomic check-and-record across replicas.
type RedisReplayCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisReplayCache constructs a Redis-backed replay cache with the given TTL.
func NewRedisReplayCache(rdb *redis.Client, ttl time.Duration) *RedisReplayCache {
	return &RedisReplayCache{rdb: rdb, ttl: ttl}
}

// Seen records eventID and reports whether it was already present. On a Redis
// failure the event is treated as unseen: reconciliation is idempotent, so
// processing a duplicate is safer than dropping a delivery.
func (c *RedisReplayCache) Seen(ctx context.Context, eventID string) (bool, error) {
	set, err := c.rdb.SetNX(ctx, replayKeyPrefix+eventID, 1, c.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
