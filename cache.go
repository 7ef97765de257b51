// FILE: lixenwraith/props/cache.go
package props

import (
	"context"
	"errors"
	"sync"
)

type cacheKey struct {
	name  string
	shape string
}

// cacheEntry is immutable once stored.
type cacheEntry struct {
	value any
	err   error
}

// Cache memoizes resolution outcomes per (property name, descriptor) pair.
// Failures are stored and replayed like values. Entries never expire.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*cacheEntry)}
}

// Lookup returns the stored outcome for (name, td). A stored failure is
// returned as err with found=true.
func (c *Cache) Lookup(name string, td TypeDescriptor) (value any, found bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey{name, td.String()}]
	if !ok {
		return nil, false, nil
	}
	return e.value, true, e.err
}

// GetOrCompute returns the stored outcome or runs compute and stores its
// result. Concurrent misses may compute in parallel; the last write wins.
// Cancellation errors are returned but never stored.
func (c *Cache) GetOrCompute(name string, td TypeDescriptor, compute func() (any, error)) (value any, hit bool, err error) {
	if v, ok, err := c.Lookup(name, td); ok {
		return v, true, err
	}

	// Compute outside the lock, sources may block
	v, err := compute()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, false, err
	}

	c.mu.Lock()
	c.entries[cacheKey{name, td.String()}] = &cacheEntry{value: v, err: err}
	c.mu.Unlock()
	return v, false, err
}

// Invalidate removes every entry for name, across all descriptors.
// It returns the number of entries removed.
func (c *Cache) Invalidate(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k := range c.entries {
		if k.name == name {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// InvalidateAll clears the cache and returns the number of entries removed.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[cacheKey]*cacheEntry)
	return n
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
