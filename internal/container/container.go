// Package container implements the centralized state container the bundle
// runtime is built on: one root state, one root reducer, ordered listeners.
package container

import (
	"errors"
	"sync"

	"github.com/roach88/bundlecore/internal/model"
)

// ErrReducing is returned when a dispatch arrives while a reducer is running.
var ErrReducing = errors.New("reducers may not dispatch actions")

// RootReducer computes the next root state. Errors abort the transition
// and surface from Dispatch.
type RootReducer func(state model.State, action model.Action) (model.State, error)

type listener struct {
	fn   model.Listener
	once sync.Once
}

// Container holds the root state.
//
// Dispatch is not reentrant from reducers, but listeners may dispatch.
// Callers serialize dispatches; the mutex only protects the fields so
// GetState is safe from other goroutines.
type Container struct {
	mu        sync.Mutex
	reducer   RootReducer
	state     model.State
	listeners []*listener
	reducing  bool
}

// New creates a container and dispatches ActionInit.
func New(reducer RootReducer, preloaded model.State) (*Container, error) {
	if preloaded == nil {
		preloaded = model.State{}
	}
	c := &Container{reducer: reducer, state: preloaded}
	if _, err := c.Dispatch(model.Action{Type: model.ActionInit}); err != nil {
		return nil, err
	}
	return c, nil
}

// GetState returns the current root state snapshot.
func (c *Container) GetState() model.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch reduces action and then notifies a snapshot of the listeners in
// subscription order. The first listener error stops the rest.
func (c *Container) Dispatch(action model.Action) (model.Action, error) {
	_, err := c.dispatch(action)
	return action, err
}

// dispatch reports whether the transition was committed. A reducer error
// aborts it; a listener error comes after the commit.
func (c *Container) dispatch(action model.Action) (bool, error) {
	c.mu.Lock()
	if c.reducing {
		c.mu.Unlock()
		return false, ErrReducing
	}
	c.reducing = true
	reducer, state := c.reducer, c.state
	c.mu.Unlock()

	next, err := c.reduce(reducer, state, action)
	if err != nil {
		return false, err
	}
	if next == nil {
		next = model.State{}
	}

	c.mu.Lock()
	c.state = next
	listeners := make([]*listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		if err := l.fn(); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (c *Container) reduce(reducer RootReducer, state model.State, action model.Action) (model.State, error) {
	defer func() {
		c.mu.Lock()
		c.reducing = false
		c.mu.Unlock()
	}()
	return reducer(state, action)
}

// Subscribe registers fn to run after every reduced dispatch.
// The returned function unsubscribes; calling it again is a no-op.
// Unsubscribing during a notification takes effect from the next dispatch.
func (c *Container) Subscribe(fn model.Listener) func() {
	l := &listener{fn: fn}

	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()

	return func() {
		l.once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, cur := range c.listeners {
				if cur == l {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// ReplaceReducer swaps the root reducer and dispatches ActionReplaceReducer
// so every slice can react to the new shape.
//
// If the new reducer fails, the previous one is restored, the state is
// untouched and committed is false. A listener error is returned with
// committed true: the new reducer and the state it produced stay.
func (c *Container) ReplaceReducer(reducer RootReducer) (committed bool, err error) {
	c.mu.Lock()
	prev := c.reducer
	c.reducer = reducer
	c.mu.Unlock()

	committed, err = c.dispatch(model.Action{Type: model.ActionReplaceReducer})
	if !committed {
		c.mu.Lock()
		c.reducer = prev
		c.mu.Unlock()
	}
	return committed, err
}
