// Package watch tracks which derived values still have subscribers.
package watch

import (
	"sort"
	"sync"
)

// RefSet is an ownership-counted set of names.
//
// Each Acquire hands out a Handle owning one count. A name leaves the set
// only when its count returns to exactly zero.
type RefSet struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewRefSet creates an empty set.
func NewRefSet() *RefSet {
	return &RefSet{counts: make(map[string]int)}
}

// Handle owns one count of a name in a RefSet.
type Handle struct {
	set  *RefSet
	name string
	once sync.Once
}

// Acquire increments name's count and returns the owning handle.
func (s *RefSet) Acquire(name string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[name]++
	return &Handle{set: s, name: name}
}

// Name returns the name the handle owns a count of.
func (h *Handle) Name() string {
	return h.name
}

// Release gives the count back. Releasing a handle more than once has no
// further effect.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.set.release(h.name)
	})
}

func (s *RefSet) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.counts[name] - 1
	if count == 0 {
		delete(s.counts, name)
		return
	}
	s.counts[name] = count
}

// Count returns the number of live handles for name.
func (s *RefSet) Count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

// Has reports whether name has at least one live handle.
func (s *RefSet) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.counts[name]
	return ok
}

// Names returns the watched names in sorted order.
func (s *RefSet) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.counts))
	for name := range s.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of distinct watched names.
func (s *RefSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counts)
}
