// Package reactor runs reactors: derived values that return an action to
// dispatch while their condition holds.
//
// The Scheduler bundle evaluates reactors after every transition, in
// registration order. The first truthy result becomes the single pending
// reaction and is dispatched at the store's next idle turn. No other
// reactor is selected until it has been dispatched.
package reactor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
)

// ActionAppIdle is dispatched once no transition has happened for the idle
// delay, when idle dispatch is enabled.
const ActionAppIdle = "APP_IDLE"

// BundleName is the name of the scheduler bundle.
const BundleName = "reactors"

// Reaction is a selected reactor result awaiting dispatch.
type Reaction struct {
	Reactor string
	Action  any
}

// Scheduler selects and dispatches reactions for one store.
type Scheduler struct {
	mu      sync.Mutex
	pending *Reaction

	clock     Clock
	limit     int
	window    time.Duration
	idleAfter time.Duration
	logger    *slog.Logger

	guard    *LoopGuard
	stopIdle func() bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock injects the clock used by the loop guard and idle debounce.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLoopLimit sets how many identical selections the window allows.
// Default: DefaultLoopLimit.
func WithLoopLimit(n int) Option {
	return func(s *Scheduler) {
		s.limit = n
	}
}

// WithWindow sets the loop guard window.
// Default: DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(s *Scheduler) {
		s.window = d
	}
}

// WithIdleDispatch dispatches ActionAppIdle once d has passed without a
// transition. Zero disables it, which is the default.
func WithIdleDispatch(d time.Duration) Option {
	return func(s *Scheduler) {
		s.idleAfter = d
	}
}

// WithLogger sets the logger. Default: the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{clock: systemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	s.guard = NewLoopGuard(s.clock, s.limit, s.window)
	return s
}

// Bundle returns the scheduler bundle. It carries no state and sorts
// before every other bundle.
func (s *Scheduler) Bundle() bundle.Spec {
	return bundle.Spec{
		Name:     BundleName,
		Priority: bundle.PriorityHighest,
		Init:     s.init,
		Actions: map[string]bundle.ActionCreator{
			"doMarkIdle": bundle.Plain(ActionAppIdle),
		},
	}
}

// Pending returns the reaction waiting for dispatch, if any.
func (s *Scheduler) Pending() (Reaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Reaction{}, false
	}
	return *s.pending, true
}

// Guard returns the loop guard.
func (s *Scheduler) Guard() *LoopGuard {
	return s.guard
}

func (s *Scheduler) init(store bundle.Store) (func(), error) {
	if s.logger == nil {
		s.logger = store.Logger()
	}

	for _, name := range store.ReactorNames() {
		if _, err := store.React(name); err != nil {
			return nil, err
		}
	}

	listener := func() error {
		s.scheduleIdle(store)
		return s.selectNext(store)
	}
	unsubscribe := store.Subscribe(listener)

	// Covers the starting state and bundles integrated before this one.
	if err := listener(); err != nil {
		unsubscribe()
		return nil, err
	}

	return func() {
		unsubscribe()
		s.mu.Lock()
		if s.stopIdle != nil {
			s.stopIdle()
			s.stopIdle = nil
		}
		s.pending = nil
		s.mu.Unlock()
	}, nil
}

// selectNext picks the first truthy reactor result unless a reaction is
// already pending.
func (s *Scheduler) selectNext(store bundle.Store) error {
	s.mu.Lock()
	busy := s.pending != nil
	s.mu.Unlock()
	if busy {
		return nil
	}

	for _, name := range store.ReactorNames() {
		result, err := store.React(name)
		if err != nil {
			return err
		}
		if !model.Truthy(result) {
			continue
		}
		if err := s.guard.Allow(name, result); err != nil {
			s.logger.Error("reactor loop detected", "reactor", name, "error", err)
			return err
		}

		s.mu.Lock()
		s.pending = &Reaction{Reactor: name, Action: result}
		s.mu.Unlock()

		s.logger.Debug("reaction scheduled", "reactor", name)
		store.Defer(func() error { return s.dispatchPending(store) })
		return nil
	}
	return nil
}

// dispatchPending clears the pending slot, then dispatches it, so the
// resulting transition can select a fresh reaction.
func (s *Scheduler) dispatchPending(store bundle.Store) error {
	s.mu.Lock()
	r := s.pending
	s.pending = nil
	s.mu.Unlock()

	if r == nil {
		return nil
	}
	s.logger.Debug("dispatching reaction", "reactor", r.Reactor)
	_, err := store.Dispatch(r.Action)
	return err
}

// scheduleIdle restarts the idle debounce.
func (s *Scheduler) scheduleIdle(store bundle.Store) {
	if s.idleAfter <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopIdle != nil {
		s.stopIdle()
	}
	s.stopIdle = s.clock.AfterFunc(s.idleAfter, func() {
		store.Defer(func() error {
			_, err := store.Dispatch(model.Action{Type: ActionAppIdle})
			return err
		})
	})
}
