package cache

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
)

// Cache is a thread-safe in-memory map with per-entry expiry. Values are
// stored as-is, so callers must not mutate what they put in.
type Cache[V any] struct {
	entries map[string]*Entry[V]
	mutex   sync.RWMutex
	now     func() time.Time
}

// Entry is a cached value with metadata
type Entry[V any] struct {
	Key       string
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
	Source    string
}

// Stale reports whether the entry expired before t
func (e *Entry[V]) Stale(t time.Time) bool {
	return t.After(e.ExpiresAt)
}

// NewCache creates a new in-memory cache
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]*Entry[V]),
		now:     time.Now,
	}
}

// Set stores value under key until ttl elapses
func (c *Cache[V]) Set(key string, value V, ttl time.Duration, source string) {
	now := c.now()
	entry := &Entry[V]{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Source:    source,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = entry
}

// Get returns the value if present and not stale
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || entry.Stale(c.now()) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// GetOrCreate returns the fresh value under key, or stores and returns the
// result of create. The entry's expiry is pushed out on every call.
func (c *Cache[V]) GetOrCreate(key string, ttl time.Duration, source string, create func() V) V {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	entry, exists := c.entries[key]
	if !exists || entry.Stale(now) {
		entry = &Entry[V]{Key: key, Value: create(), CreatedAt: now, Source: source}
		c.entries[key] = entry
	}
	entry.ExpiresAt = now.Add(ttl)
	return entry.Value
}

// GetWithMetadata returns the entry even when stale; the caller decides how
// to treat it.
func (c *Cache[V]) GetWithMetadata(key string) (Entry[V], bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return Entry[V]{}, false
	}
	return *entry, true
}

// Stats returns cache statistics
func (c *Cache[V]) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	stats := Stats{
		TotalEntries: len(c.entries),
	}

	for _, entry := range c.entries {
		if entry.Stale(now) {
			stats.StaleEntries++
		} else {
			stats.FreshEntries++
		}

		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = entry.CreatedAt
		}
	}

	return stats
}

// CleanupStale removes all stale entries from cache
func (c *Cache[V]) CleanupStale() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	var removed int
	for key, entry := range c.entries {
		if entry.Stale(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartPeriodicCleanup removes stale entries every interval until ctx is done
func (c *Cache[V]) StartPeriodicCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err, _ := errors.ParseStack(debug.Stack())
				skipFrames := 3
				numFrames := 5
				logging.Errorw(ctx, "Cache cleanup: recovered from panic",
					"error", r, "error.stack_trace", err.MinimalStack(skipFrames, numFrames))
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CleanupStale()
			}
		}
	}()
}

// Stats provides cache usage statistics
type Stats struct {
	TotalEntries int       `json:"total_entries"`
	FreshEntries int       `json:"fresh_entries"`
	StaleEntries int       `json:"stale_entries"`
	OldestEntry  time.Time `json:"oldest_entry"`
	NewestEntry  time.Time `json:"newest_entry"`
}
