package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/bundlecore/internal/model"
)

// ErrInjected is returned for keys registered with FailKeys.
var ErrInjected = errors.New("persist: injected write failure")

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	fail    map[string]bool
	closed  bool
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		fail:    make(map[string]bool),
	}
}

// FailKeys makes every later Set for keys return ErrInjected.
func (c *MemoryCache) FailKeys(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.fail[k] = true
	}
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, seq int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClosed
	}
	if c.fail[key] {
		return false, fmt.Errorf("set %q: %w", key, ErrInjected)
	}
	if cur, ok := c.entries[key]; ok && seq <= cur.Seq {
		return false, nil
	}

	c.entries[key] = Entry{
		Value: append([]byte(nil), value...),
		Seq:   seq,
		Hash:  model.ContentHash(model.DomainSlice, value),
	}
	return true, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Entry{}, false, ErrClosed
	}
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	e.Value = append([]byte(nil), e.Value...)
	return e, true, nil
}

func (c *MemoryCache) Keys(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *MemoryCache) MaxSeq(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}
	var max int64
	for _, e := range c.entries {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	delete(c.entries, key)
	return nil
}

// Close makes every later call return ErrClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
