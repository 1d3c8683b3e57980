package extend

import "sync"

// Cache holds fetched file contents, split into lines, keyed by
// (reference, path). It is append-only: entries are never mutated in
// place, so concurrent readers during chunked analysis are safe. Owners
// construct their own Cache instead of sharing package state, and clear
// it explicitly when a process wants to reclaim memory.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewCache creates an empty content cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]string)}
}

func cacheKey(ref, path string) string {
	return ref + "\x00" + path
}

// Get returns the cached lines for (ref, path).
func (c *Cache) Get(ref, path string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lines, ok := c.entries[cacheKey(ref, path)]
	return lines, ok
}

// Put stores the lines for (ref, path).
func (c *Cache) Put(ref, path string, lines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(ref, path)] = lines
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]string)
}
