package reactor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/bundlecore/internal/model"
)

const (
	// DefaultLoopLimit is how many times one reactor may pick the same
	// result within the window.
	DefaultLoopLimit = 10

	// DefaultWindow is the sliding window of the loop guard.
	DefaultWindow = time.Second
)

// ErrLoopDetected matches every *LoopError.
var ErrLoopDetected = errors.New("reactor loop detected")

// LoopError reports a reactor that keeps producing the same result, which
// means its action never changes the state the reactor reads.
type LoopError struct {
	Reactor string
	Result  any
	Count   int
	Limit   int
	Window  time.Duration
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("reactor %q produced the same result more than %d times without resolving its triggering condition",
		e.Reactor, e.Limit)
}

func (e *LoopError) Unwrap() error {
	return ErrLoopDetected
}

// loopKey identifies one (reactor, result) pair by result identity.
type loopKey struct {
	reactor string
	result  any
}

// LoopGuard counts reactor selections per (reactor, result identity) pair
// over a sliding window.
//
// Results are compared by model.IdentityKey: a freshly allocated action is
// a new result even when its contents match an earlier one.
type LoopGuard struct {
	mu      sync.Mutex
	clock   Clock
	limit   int
	window  time.Duration
	history map[loopKey][]time.Time
}

// NewLoopGuard creates a guard. Non-positive limit or window fall back to
// the defaults.
func NewLoopGuard(clock Clock, limit int, window time.Duration) *LoopGuard {
	if clock == nil {
		clock = systemClock{}
	}
	if limit <= 0 {
		limit = DefaultLoopLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &LoopGuard{
		clock:   clock,
		limit:   limit,
		window:  window,
		history: make(map[loopKey][]time.Time),
	}
}

// Allow records a selection of result by reactor. It returns a *LoopError
// when the pair has now been selected more than the limit within the window.
func (g *LoopGuard) Allow(reactor string, result any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	g.prune(now)

	key := loopKey{reactor: reactor, result: model.IdentityKey(result)}
	g.history[key] = append(g.history[key], now)

	if n := len(g.history[key]); n > g.limit {
		return &LoopError{Reactor: reactor, Result: result, Count: n, Limit: g.limit, Window: g.window}
	}
	return nil
}

// Count returns how many selections of the pair fall within the window.
func (g *LoopGuard) Count(reactor string, result any) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(g.clock.Now())
	return len(g.history[loopKey{reactor: reactor, result: model.IdentityKey(result)}])
}

// Reset forgets every recorded selection.
func (g *LoopGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = make(map[loopKey][]time.Time)
}

// prune drops selections that left the window. Caller holds mu.
func (g *LoopGuard) prune(now time.Time) {
	for key, times := range g.history {
		i := 0
		for i < len(times) && now.Sub(times[i]) >= g.window {
			i++
		}
		if i == len(times) {
			delete(g.history, key)
			continue
		}
		g.history[key] = times[i:]
	}
}
