package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

const defaultMaxCacheEntries = 1024

// MemoryQueryCache is the in-process query cache. Values are stored JSON
// encoded so callers never share mutable state with the cache. Expired
// entries are swept on write at most once per TTL, and the entry count is
// capped by evicting the entries closest to expiry.
type MemoryQueryCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	nextSweep  time.Time
	now        func() time.Time
}

func NewMemoryQueryCache(ttl time.Duration) *MemoryQueryCache {
	return &MemoryQueryCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: defaultMaxCacheEntries,
		now:        time.Now,
	}
}

func (c *MemoryQueryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *MemoryQueryCache) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", key, err)
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
	}
	if _, exists := c.entries[key]; !exists {
		for c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = cacheEntry{data: data, expiresAt: now.Add(c.ttl)}
	return nil
}

func (c *MemoryQueryCache) sweepLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.nextSweep = now.Add(c.ttl)
}

// evictOldestLocked drops the entry that expires first. Every entry shares
// the TTL, so that is also the oldest write.
func (c *MemoryQueryCache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func (c *MemoryQueryCache) InvalidatePrefix(_ context.Context, prefixes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				delete(c.entries, key)
				break
			}
		}
	}
	return nil
}

// Len returns the number of live and expired entries.
func (c *MemoryQueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NoopQueryCache disables caching.
type NoopQueryCache struct{}

func (NoopQueryCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NoopQueryCache) Set(context.Context, string, interface{}) error         { return nil }
func (NoopQueryCache) InvalidatePrefix(context.Context, ...string) error      { return nil }
