// Package auth acquires and caches bearer tokens for authentication
// settings so that authentication cost is amortized across rule
// invocations.
package auth

import (
	"context"
	"sync"
	"time"
)

// validityMargin is the safety margin before expiry: a cached token is
// served only while at least this much lifetime remains, so a token never
// dies mid-policy-run.
const validityMargin = 5 * time.Minute

// TokenCache stores bearer tokens keyed by authentication setting name.
type TokenCache interface {
	// Get returns the cached token for the key, or "" and false when no
	// token is cached or fewer than five minutes remain before expiry.
	Get(ctx context.Context, key string) (string, bool)

	// Set caches a token that expires after expiresIn.
	Set(ctx context.Context, key, token string, expiresIn time.Duration)
}

type cacheEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryTokenCache is the in-process cache used by default. It is shared
// mutable state across concurrent policy runs; per-key acquisition is not
// locked, so two runs may both hit the token endpoint for the same setting
// and the last write wins. Both tokens are valid, so this duplication is
// accepted rather than serialized.
type MemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{entries: make(map[string]cacheEntry)}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if time.Until(entry.expiresAt) < validityMargin {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return "", false
	}

	return entry.token, true
}

func (c *MemoryTokenCache) Set(_ context.Context, key, token string, expiresIn time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		token:     token,
		expiresAt: time.Now().UTC().Add(expiresIn),
	}
}
