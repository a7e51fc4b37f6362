package app

import (
	"context"
	"sync"
	"time"

	"github.com/queryex/api/internal/infra/redis"
	"github.com/queryex/api/pkg/domain/access"
)

// PrincipalCache stores resolved principals by the key PrincipalService
// derives from the username and group claims. Get returns redis.ErrCacheMiss
// when nothing usable is cached.
type PrincipalCache interface {
	Get(ctx context.Context, username string) (*access.Principal, error)
	Set(ctx context.Context, username string, p access.Principal) error
	Delete(ctx context.Context, username string) error
}

// MemoryPrincipalCache is an in-process PrincipalCache used when Redis is
// disabled.
type MemoryPrincipalCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]memoryEntry
	nextSweep time.Time
}

type memoryEntry struct {
	principal access.Principal
	expires   time.Time
}

// NewMemoryPrincipalCache creates an in-process cache. A non-positive ttl
// keeps entries until they are deleted.
func NewMemoryPrincipalCache(ttl time.Duration) *MemoryPrincipalCache {
	return &MemoryPrincipalCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements PrincipalCache.
func (c *MemoryPrincipalCache) Get(_ context.Context, username string) (*access.Principal, error) {
	c.mu.RLock()
	e, ok := c.entries[username]
	c.mu.RUnlock()

	if !ok || (!e.expires.IsZero() && c.now().After(e.expires)) {
		return nil, redis.ErrCacheMiss
	}
	p := e.principal
	return &p, nil
}

// Set implements PrincipalCache. Expired entries are swept at most once
// per ttl, on the way in.
func (c *MemoryPrincipalCache) Set(_ context.Context, username string, p access.Principal) error {
	now := c.now()
	e := memoryEntry{principal: p}
	if c.ttl > 0 {
		e.expires = now.Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl > 0 && !now.Before(c.nextSweep) {
		for k, old := range c.entries {
			if now.After(old.expires) {
				delete(c.entries, k)
			}
		}
		c.nextSweep = now.Add(c.ttl)
	}
	c.entries[username] = e
	return nil
}

// Delete implements PrincipalCache.
func (c *MemoryPrincipalCache) Delete(_ context.Context, username string) error {
	c.mu.Lock()
	delete(c.entries, username)
	c.mu.Unlock()
	return nil
}
