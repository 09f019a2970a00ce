package route

import "sync"

// DefaultCacheSize bounds a PathCache created with zero capacity.
const DefaultCacheSize = 10000

type cacheKey struct {
	opts    Options
	pattern string
}

// PathCache holds compiled patterns. It is bounded: once full, new
// patterns are compiled on every use and never stored. Nothing is evicted.
type PathCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]*Pattern
}

// NewPathCache creates a cache holding up to capacity patterns.
func NewPathCache(capacity int) *PathCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &PathCache{capacity: capacity, entries: make(map[cacheKey]*Pattern)}
}

// Compile returns the cached pattern or compiles and caches it.
func (c *PathCache) Compile(pattern string, opts Options) (*Pattern, error) {
	k := cacheKey{opts: opts, pattern: pattern}

	c.mu.Lock()
	p, ok := c.entries[k]
	c.mu.Unlock()
	if ok {
		return p, nil
	}

	p, err := Compile(pattern, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) < c.capacity {
		c.entries[k] = p
	}
	c.mu.Unlock()
	return p, nil
}

// Len returns the number of cached patterns.
func (c *PathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cap returns the capacity.
func (c *PathCache) Cap() int {
	return c.capacity
}
