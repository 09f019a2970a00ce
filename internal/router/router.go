// Package router keeps the current URL location in a store slice and syncs
// it with a History.
package router

import (
	"fmt"
	"strings"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/route"
	"github.com/roach88/bundlecore/internal/selector"
)

// Action types.
const (
	ActionURLUpdated    = "ROUTER_URL_UPDATED"
	ActionURLRedirected = "ROUTER_URL_REDIRECTED"
)

// BundleName is the router slice name.
const BundleName = "router"

// Extra argument keys.
const (
	ArgHistory   = "history"
	ArgMatchPath = "matchPath"
)

// State is the router slice.
type State struct {
	Location Location `json:"location"`

	// Redirect is set when the location came from a redirect, so it
	// replaces the current history entry instead of pushing.
	Redirect bool `json:"redirect"`
}

// MatchPath matches the current history location against a pattern.
type MatchPath func(pattern string, opts route.Options) (*route.Match, error)

// Router binds a History to a store.
type Router struct {
	history History
	matcher *route.Matcher
}

// Option configures a Router.
type Option func(*Router)

// WithMatcher shares a matcher, and with it the compiled pattern caches.
func WithMatcher(m *route.Matcher) Option {
	return func(r *Router) {
		if m != nil {
			r.matcher = m
		}
	}
}

// New creates a Router over h.
func New(h History, opts ...Option) *Router {
	r := &Router{history: h, matcher: route.NewMatcher()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bundle returns the router bundle.
func (r *Router) Bundle() bundle.Spec {
	return bundle.Spec{
		Name:     BundleName,
		Priority: bundle.PriorityHighest,
		Reducer:  r.reduce,
		Derived: []bundle.Derived{
			bundle.Readable("selectLocation", selector.Input(selectLocation)),
			bundle.Readable("selectRedirect", selector.Input(selectRedirect)),
			bundle.Reactive("reactTrailingSlashes", selector.Create(trailingSlashes, "selectLocation")),
		},
		Actions: map[string]bundle.ActionCreator{
			"historyPush":     navigate(func(h History, to string) { h.Push(to) }),
			"historyReplace":  navigate(func(h History, to string) { h.Replace(to) }),
			"historyGo":       historyGo,
			"historyBack":     step(-1),
			"historyForward":  step(1),
			"historyRedirect": historyRedirect,
		},
		Init: r.init,
		Args: r.args,
	}
}

func (r *Router) reduce(state any, action model.Action) any {
	s, ok := state.(State)
	if !ok {
		s = State{Location: r.history.Location()}
	}

	switch action.Type {
	case ActionURLUpdated:
		loc, ok := asLocation(action.Payload)
		if !ok {
			return s
		}
		return State{Location: loc}
	case ActionURLRedirected:
		loc, ok := asLocation(action.Payload)
		if !ok {
			return s
		}
		return State{Location: loc, Redirect: true}
	}
	return s
}

func asLocation(v any) (Location, bool) {
	switch loc := v.(type) {
	case Location:
		return loc, true
	case *Location:
		if loc == nil {
			return Location{}, false
		}
		return *loc, true
	case string:
		return ParseLocation(loc), true
	}
	return Location{}, false
}

func slice(state model.State) State {
	s, _ := state[BundleName].(State)
	return s
}

func selectLocation(state model.State, _ ...string) any {
	return slice(state).Location
}

func selectRedirect(state model.State, _ ...string) any {
	return slice(state).Redirect
}

// trailingSlashes redirects /a/ to /a, keeping search and hash.
func trailingSlashes(values []any, _ ...string) any {
	loc, _ := values[0].(Location)
	if loc.Pathname == "" || loc.Pathname == "/" || !strings.HasSuffix(loc.Pathname, "/") {
		return nil
	}
	loc.Pathname = strings.TrimSuffix(loc.Pathname, "/")
	return model.Action{Type: ActionURLRedirected, Payload: loc}
}

func historyFrom(extra bundle.Extra) (History, error) {
	v, ok := extra.Value(ArgHistory)
	if !ok {
		return nil, fmt.Errorf("router: no %q extra argument", ArgHistory)
	}
	h, ok := v.(History)
	if !ok {
		return nil, fmt.Errorf("router: %q extra argument is %T", ArgHistory, v)
	}
	return h, nil
}

func navigate(fn func(History, string)) bundle.ActionCreator {
	return func(args ...any) any {
		return bundle.Thunk(func(_ model.Dispatch, extra bundle.Extra) (any, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("router: missing path")
			}
			h, err := historyFrom(extra)
			if err != nil {
				return nil, err
			}
			fn(h, pathOf(args[0]))
			return nil, nil
		})
	}
}

func pathOf(v any) string {
	if loc, ok := asLocation(v); ok {
		return loc.String()
	}
	return fmt.Sprint(v)
}

func historyGo(args ...any) any {
	n := 0
	if len(args) > 0 {
		n, _ = args[0].(int)
	}
	return step(n)()
}

func step(n int) bundle.ActionCreator {
	return func(...any) any {
		return bundle.Thunk(func(_ model.Dispatch, extra bundle.Extra) (any, error) {
			h, err := historyFrom(extra)
			if err != nil {
				return nil, err
			}
			h.Go(n)
			return nil, nil
		})
	}
}

func historyRedirect(args ...any) any {
	var payload any
	if len(args) > 0 {
		payload = args[0]
	}
	return bundle.Thunk(func(dispatch model.Dispatch, _ bundle.Extra) (any, error) {
		return dispatch(model.Action{Type: ActionURLRedirected, Payload: payload})
	})
}

func (r *Router) args(bundle.Store) map[string]any {
	return map[string]any{
		ArgHistory: r.history,
		ArgMatchPath: MatchPath(func(pattern string, opts route.Options) (*route.Match, error) {
			return r.matcher.Match(r.history.Location().Pathname, pattern, opts)
		}),
	}
}

func (r *Router) init(store bundle.Store) (func(), error) {
	logger := store.Logger()

	unlisten := r.history.Listen(func(loc Location, action string) {
		cur, err := store.Selector("selectLocation")
		if err != nil {
			logger.Error("router: read location", "error", err)
			return
		}
		if cur == loc {
			return
		}
		if _, err := store.Dispatch(model.Action{Type: ActionURLUpdated, Payload: loc}); err != nil {
			logger.Error("router: dispatch location", "history_action", action, "error", err)
		}
	})

	unsubscribe, err := store.SubscribeToSelectors(
		[]string{"selectLocation", "selectRedirect"},
		func(changed map[string]any) {
			loc, ok := changed[selector.ValueName("selectLocation")].(Location)
			if !ok || r.history.Location() == loc {
				return
			}
			// The history listener already dispatched locations that came
			// from history; only store-driven changes get here.
			store.Defer(func() error {
				if r.history.Location() == loc {
					return nil
				}
				if cur, err := store.Selector("selectLocation"); err != nil || cur != loc {
					// Superseded by a later change, which has its own task.
					return err
				}
				redirect, err := store.Selector("selectRedirect")
				if err != nil {
					return err
				}
				if b, _ := redirect.(bool); b {
					r.history.Replace(loc.String())
				} else {
					r.history.Push(loc.String())
				}
				return nil
			})
		},
	)
	if err != nil {
		unlisten()
		return nil, err
	}

	return func() {
		unsubscribe()
		unlisten()
	}, nil
}
