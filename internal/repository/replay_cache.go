package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryReplayCache is a single-node webhook replay cache. It is the fallback
// when no Redis address is configured.
type MemoryReplayCache struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemoryReplayCache constructs an in-memory replay cache with the given TTL.
func NewMemoryReplayCache(ttl time.Duration) *MemoryReplayCache {
	return &MemoryReplayCache{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// Seen reports whether eventID was already recorded within the TTL and
// records it if not. Expired entries are pruned on each call to keep memory
// bounded.
func (c *MemoryReplayCache) Seen(ctx context.Context, eventID string) (bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, expiresAt := range c.seen {
		if now.After(expiresAt) {
			delete(c.seen, id)
		}
	}

	if _, ok := c.seen[eventID]; ok {
		return true, nil
	}
	c.seen[eventID] = now.Add(c.ttl)
	return false, nil
}
