package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// HeadSource returns the chain head height.
type HeadSource interface {
	GetLatestBlock(ctx context.Context) (uint64, error)
}

// HeadCache serves the chain head from memory for ttl after each fetch.
// Concurrent misses share one upstream call. A zero ttl disables caching
// but still collapses concurrent calls.
type HeadCache struct {
	source HeadSource
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time

	mu        sync.RWMutex
	head      uint64
	fetchedAt time.Time
}

// NewHeadCache wraps source.
func NewHeadCache(source HeadSource, ttl time.Duration) *HeadCache {
	return &HeadCache{source: source, ttl: ttl, now: time.Now}
}

func (c *HeadCache) fresh() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ttl <= 0 || c.fetchedAt.IsZero() {
		return 0, false
	}
	return c.head, c.now().Sub(c.fetchedAt) < c.ttl
}

// GetLatestBlock returns the head, fetching when the cached value is stale.
// Errors are never cached.
func (c *HeadCache) GetLatestBlock(ctx context.Context) (uint64, error) {
	if head, ok := c.fresh(); ok {
		return head, nil
	}

	v, err, _ := c.group.Do("head", func() (any, error) {
		// Another caller may have refreshed it since the check above.
		if head, ok := c.fresh(); ok {
			return head, nil
		}
		head, err := c.source.GetLatestBlock(ctx)
		if err != nil {
			return uint64(0), err
		}
		c.mu.Lock()
		c.head, c.fetchedAt = head, c.now()
		c.mu.Unlock()
		return head, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}
