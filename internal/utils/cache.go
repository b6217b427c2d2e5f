package utils

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Stamp identifies one version of a file on disk.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// StampOf stats path.
func StampOf(path string) (Stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}, nil
}

type cacheEntry[V any] struct {
	value V
	stamp Stamp
}

// Cache is a concurrency-safe map whose entries can be tied to the file
// they were derived from. In watch mode the same file is read many times;
// an entry is served only while the file's modification time and size are
// unchanged.
type Cache[K comparable, V any] struct {
	mu     sync.RWMutex
	items  map[K]cacheEntry[V]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates an empty cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{items: make(map[K]cacheEntry[V])}
}

// Get returns the entry for key regardless of any file stamp.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	c.count(ok)
	return entry.value, ok
}

// GetFresh returns the entry for key if the file at path still has the
// stamp the entry was stored with. Stale entries are dropped.
func (c *Cache[K, V]) GetFresh(key K, path string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if ok {
		stamp, err := StampOf(path)
		if err == nil && stamp.Size == entry.stamp.Size && stamp.ModTime.Equal(entry.stamp.ModTime) {
			c.count(true)
			return entry.value, true
		}
		c.Delete(key)
	}

	c.count(false)
	var zero V
	return zero, false
}

// Set stores value without a file stamp.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry[V]{value: value}
}

// SetFresh stores value stamped with the current state of path.
func (c *Cache[K, V]) SetFresh(key K, value V, path string) error {
	stamp, err := StampOf(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry[V]{value: value, stamp: stamp}
	return nil
}

// Delete removes the entry for key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry and resets the counters.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]cacheEntry[V])
	c.hits.Store(0)
	c.misses.Store(0)
}

// Size returns the number of entries.
func (c *Cache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns the entry count and lookup counters.
func (c *Cache[K, V]) Stats() CacheStats {
	return CacheStats{
		Size:   c.Size(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

func (c *Cache[K, V]) count(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

// CacheStats summarizes cache usage.
type CacheStats struct {
	Size   int
	Hits   int64
	Misses int64
}
