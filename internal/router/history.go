package router

import (
	"slices"
	"strings"
	"sync"
)

// Location is a parsed URL location. Search keeps its leading "?" and Hash
// its leading "#".
type Location struct {
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
	Hash     string `json:"hash"`
}

// ParseLocation splits a path such as /a?b=1#c. An empty pathname becomes "/".
func ParseLocation(path string) Location {
	var loc Location
	if i := strings.IndexByte(path, '#'); i >= 0 {
		loc.Hash = path[i:]
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		loc.Search = path[i:]
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}
	loc.Pathname = path
	return loc
}

// String joins the location back into a path.
func (l Location) String() string {
	return l.Pathname + l.Search + l.Hash
}

// History actions reported to listeners.
const (
	HistoryPush    = "PUSH"
	HistoryReplace = "REPLACE"
	HistoryPop     = "POP"
)

// History is the navigation collaborator of the router bundle.
type History interface {
	Location() Location
	Push(path string)
	Replace(path string)

	// Go moves n entries through the history stack. Negative n goes back.
	Go(n int)

	// Listen registers fn for every location change.
	Listen(fn func(loc Location, action string)) (unlisten func())
}

// MemoryHistory is a History kept in memory.
type MemoryHistory struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	listeners map[int]func(Location, string)
	nextID    int
}

// NewMemoryHistory creates a history positioned at initial.
func NewMemoryHistory(initial string) *MemoryHistory {
	return &MemoryHistory{
		entries:   []Location{ParseLocation(initial)},
		listeners: make(map[int]func(Location, string)),
	}
}

func (h *MemoryHistory) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Entries returns the stack and the current index.
func (h *MemoryHistory) Entries() ([]Location, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Location(nil), h.entries...), h.index
}

func (h *MemoryHistory) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], ParseLocation(path))
	h.index++
	h.mu.Unlock()
	h.notify(HistoryPush)
}

func (h *MemoryHistory) Replace(path string) {
	h.mu.Lock()
	h.entries[h.index] = ParseLocation(path)
	h.mu.Unlock()
	h.notify(HistoryReplace)
}

// Go clamps to the ends of the stack. A move that changes nothing is not
// reported.
func (h *MemoryHistory) Go(n int) {
	h.mu.Lock()
	next := min(max(h.index+n, 0), len(h.entries)-1)
	moved := next != h.index
	h.index = next
	h.mu.Unlock()
	if moved {
		h.notify(HistoryPop)
	}
}

func (h *MemoryHistory) Listen(fn func(Location, string)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// notify calls listeners outside the lock so they may navigate.
func (h *MemoryHistory) notify(action string) {
	h.mu.Lock()
	loc := h.entries[h.index]
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(Location, string), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, h.listeners[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(loc, action)
	}
}
