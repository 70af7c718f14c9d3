package tokens

import (
	"context"
	"sync"

	"solana-copy-trader/internal/domain"
)

// MemoryCache is an unbounded in-process cache. Mint metadata is
// effectively immutable, so entries never expire.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]domain.TokenMetadata
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]domain.TokenMetadata)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, mint string) (domain.TokenMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.entries[mint]
	if !ok {
		return domain.TokenMetadata{}, domain.ErrNotFound
	}
	return meta, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, meta domain.TokenMetadata) error {
	c.mu.Lock()
	c.entries[meta.Mint] = meta
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached mints.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
