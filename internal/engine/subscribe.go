package engine

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
	"github.com/roach88/bundlecore/internal/watch"
)

// All is the watch name that subscribes to every selector, including those
// integrated later.
const All = "all"

type subscription struct {
	fn      func(changed map[string]any)
	all     bool
	names   []string // value names, parameters included
	handles []*watch.Handle
	active  atomic.Bool
}

// relevant picks the changes this subscription watches. Delivered keys have
// their parameters stripped.
func (sub *subscription) relevant(changed map[string]any) map[string]any {
	out := make(map[string]any)
	if sub.all {
		for k, v := range changed {
			out[selector.StripParams(k)] = v
		}
		return out
	}
	for _, name := range sub.names {
		if v, ok := changed[name]; ok {
			out[selector.StripParams(name)] = v
		}
	}
	return out
}

type subscriptions struct {
	mu       sync.Mutex
	list     []*subscription
	refs     *watch.RefSet
	snapshot map[string]any
}

func newSubscriptions() *subscriptions {
	return &subscriptions{
		refs:     watch.NewRefSet(),
		snapshot: make(map[string]any),
	}
}

// SubscribeToSelectors calls fn after every transition that changes at
// least one of the named selectors, with only the changed values.
//
// names may be []string{All}. An empty list returns a no-op unsubscribe.
// Unknown selectors fail here and nothing is registered. The returned
// function unsubscribes; calling it again does nothing.
func (s *Store) SubscribeToSelectors(names []string, fn func(changed map[string]any)) (func(), error) {
	if len(names) == 0 {
		return func() {}, nil
	}

	all := len(names) == 1 && names[0] == All
	meta := s.metadata()
	state := s.GetState()

	var (
		primed map[string]any
		err    error
	)
	if all {
		primed, err = selectFrom(state, meta.selectors, meta.selectorNames())
	} else {
		primed, err = selectFrom(state, meta.selectors, names)
	}
	if err != nil {
		return nil, err
	}

	sub := &subscription{fn: fn, all: all}
	if all {
		sub.handles = []*watch.Handle{s.subs.refs.Acquire(All)}
	} else {
		for _, name := range names {
			sub.handles = append(sub.handles, s.subs.refs.Acquire(name))
			sub.names = append(sub.names, selector.ValueName(name))
		}
	}
	sub.active.Store(true)

	s.subs.mu.Lock()
	s.subs.list = append(s.subs.list, sub)
	for k, v := range primed {
		s.subs.snapshot[k] = v
	}
	s.subs.mu.Unlock()

	return func() { s.unsubscribe(sub) }, nil
}

// SubscribeToAll calls fn with every changed selector value.
func (s *Store) SubscribeToAll(fn func(changed map[string]any)) func() {
	unsubscribe, err := s.SubscribeToSelectors([]string{All}, fn)
	if err != nil {
		// Every name comes from the registry, so lookups cannot fail.
		s.logger.Error("subscribe to all failed", "error", err)
		return func() {}
	}
	return unsubscribe
}

func (s *Store) unsubscribe(sub *subscription) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}
	for _, h := range sub.handles {
		h.Release()
	}

	s.subs.mu.Lock()
	defer s.subs.mu.Unlock()
	for i, cur := range s.subs.list {
		if cur == sub {
			s.subs.list = slices.Delete(s.subs.list, i, i+1)
			break
		}
	}
}

// Watched returns the selector names currently evaluated on each transition.
func (s *Store) Watched() []string {
	return s.subs.refs.Names()
}

// notify is the container listener that drives subscriptions.
func (s *Store) notify() error {
	meta := s.metadata()

	var names []string
	if s.subs.refs.Has(All) {
		names = meta.selectorNames()
	} else {
		names = s.subs.refs.Names()
	}

	values, err := selectFrom(s.GetState(), meta.selectors, names)
	if err != nil {
		return err
	}

	s.subs.mu.Lock()
	changed := make(map[string]any)
	for k, v := range values {
		if !model.Identical(s.subs.snapshot[k], v) {
			changed[k] = v
		}
	}
	s.subs.snapshot = values
	list := slices.Clone(s.subs.list)
	s.subs.mu.Unlock()

	if len(changed) == 0 {
		return nil
	}

	for _, sub := range list {
		if !sub.active.Load() {
			continue
		}
		if relevant := sub.relevant(changed); len(relevant) > 0 {
			sub.fn(relevant)
		}
	}
	return nil
}
