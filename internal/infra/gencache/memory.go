package gencache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
)

type entry struct {
	payload   assessment.Generation
	expiresAt time.Time
}

// MemoryCache keeps generations in process memory.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache constructs an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements assessment.GenerationCache.
func (c *MemoryCache) Get(_ context.Context, key string) (assessment.Generation, bool, error) {
	c.mu.RLock()
	item, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return assessment.Generation{}, false, nil
	}
	if c.expired(item.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return assessment.Generation{}, false, nil
	}
	return item.payload, true, nil
}

// Set stores a generation. A non-positive ttl never expires.
func (c *MemoryCache) Set(_ context.Context, key string, gen assessment.Generation, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.entries[key] = entry{payload: gen, expiresAt: exp}
	c.sweepLocked()
	return nil
}

func (c *MemoryCache) sweepLocked() {
	for key, item := range c.entries {
		if c.expired(item.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryCache) expired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return !ts.After(c.now())
}

var _ assessment.GenerationCache = (*MemoryCache)(nil)
