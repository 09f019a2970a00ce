// Package debug provides a bundle that logs what a store is made of and,
// while enabled, every dispatched action with the state it produced.
package debug

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/reactor"
	"github.com/roach88/bundlecore/internal/selector"
)

// Action types.
const (
	ActionEnabled  = "DEBUG_ENABLED"
	ActionDisabled = "DEBUG_DISABLED"
)

// BundleName is the debug slice name.
const BundleName = "debug"

// Debug is the debug bundle.
type Debug struct {
	enabled      bool
	logState     bool
	logSelectors bool
	filter       func(model.Action) bool
	scheduler    *reactor.Scheduler
	logger       *slog.Logger
}

// Option configures a Debug.
type Option func(*Debug)

// WithEnabled sets the initial value of the debug slice.
func WithEnabled(on bool) Option {
	return func(d *Debug) { d.enabled = on }
}

// WithActionFilter limits action logging to actions fn accepts.
func WithActionFilter(fn func(model.Action) bool) Option {
	return func(d *Debug) { d.filter = fn }
}

// WithState toggles logging the state after each action. Default: on.
func WithState(on bool) Option {
	return func(d *Debug) { d.logState = on }
}

// WithSelectors toggles logging selector values after each action.
// Default: on.
func WithSelectors(on bool) Option {
	return func(d *Debug) { d.logSelectors = on }
}

// WithScheduler lets logNextReaction report the pending reaction.
func WithScheduler(s *reactor.Scheduler) Option {
	return func(d *Debug) { d.scheduler = s }
}

// WithLogger sets the logger. Default: the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Debug) { d.logger = l }
}

// New creates a Debug bundle builder.
func New(opts ...Option) *Debug {
	d := &Debug{logState: true, logSelectors: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bundle returns the debug bundle.
func (d *Debug) Bundle() bundle.Spec {
	return bundle.Spec{
		Name:     BundleName,
		Priority: bundle.PriorityHighest,
		Reducer: func(state any, action model.Action) any {
			switch action.Type {
			case ActionEnabled:
				return true
			case ActionDisabled:
				return false
			}
			if on, ok := state.(bool); ok {
				return on
			}
			return d.enabled
		},
		Derived: []bundle.Derived{
			bundle.Readable("selectIsDebug", selector.Input(func(state model.State, _ ...string) any {
				on, _ := state[BundleName].(bool)
				return on
			})),
		},
		Actions: map[string]bundle.ActionCreator{
			"enableDebug":     bundle.Plain(ActionEnabled),
			"disableDebug":    bundle.Plain(ActionDisabled),
			"logBundles":      d.thunk(d.logBundles),
			"logSelectors":    d.thunk(d.logSelectorValues),
			"logActions":      d.thunk(d.logActions),
			"logReactors":     d.thunk(d.logReactors),
			"logNextReaction": d.thunk(d.logNextReaction),
			"logDebugSummary": d.thunk(d.logSummary),
		},
		Init:       d.init,
		Middleware: d.middleware,
	}
}

func (d *Debug) log(store bundle.Store) *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return store.Logger()
}

func (d *Debug) thunk(fn func(bundle.Store) error) bundle.ActionCreator {
	return func(...any) any {
		return bundle.Thunk(func(_ model.Dispatch, extra bundle.Extra) (any, error) {
			return nil, fn(extra.Store)
		})
	}
}

func (d *Debug) logBundles(store bundle.Store) error {
	d.log(store).Info("installed bundles", "bundles", store.Inventory().Bundles)
	return nil
}

func (d *Debug) logActions(store bundle.Store) error {
	d.log(store).Info("actions", "actions", store.Inventory().Actions)
	return nil
}

func (d *Debug) logReactors(store bundle.Store) error {
	d.log(store).Info("reactors", "reactors", store.ReactorNames())
	return nil
}

func (d *Debug) logSelectorValues(store bundle.Store) error {
	names := make([]string, 0)
	for _, name := range store.Inventory().Selectors {
		if strings.HasPrefix(name, "select") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	attrs := make([]slog.Attr, 0, len(names))
	for _, name := range names {
		v, err := store.Selector(name)
		if err != nil {
			return err
		}
		attrs = append(attrs, slog.Any(name, v))
	}
	d.log(store).LogAttrs(context.Background(), slog.LevelInfo, "selectors", slog.Attr{
		Key:   "values",
		Value: slog.GroupValue(attrs...),
	})
	return nil
}

func (d *Debug) logNextReaction(store bundle.Store) error {
	if d.scheduler == nil {
		return nil
	}
	if r, ok := d.scheduler.Pending(); ok {
		d.log(store).Info("next reaction", "reactor", r.Reactor, "action", r.Action)
	}
	return nil
}

func (d *Debug) logSummary(store bundle.Store) error {
	for _, fn := range []func(bundle.Store) error{
		d.logBundles,
		d.logSelectorValues,
		d.logActions,
		d.logReactors,
		d.logNextReaction,
	} {
		if err := fn(store); err != nil {
			return err
		}
	}
	return nil
}

func isDebug(store bundle.Store) bool {
	if v, err := store.Selector("selectIsDebug"); err == nil {
		on, _ := v.(bool)
		return on
	}
	on, _ := store.GetState()[BundleName].(bool)
	return on
}

func (d *Debug) init(store bundle.Store) (func(), error) {
	if isDebug(store) {
		d.log(store).Info("debug enabled", "store_id", store.Inventory().ID)
		if err := d.logSummary(store); err != nil {
			d.log(store).Warn("log debug summary", "error", err)
		}
	}
	return nil, nil
}

func (d *Debug) middleware(*bundle.Chunk) func(bundle.Store) bundle.Middleware {
	return func(store bundle.Store) bundle.Middleware {
		return func(next model.Dispatch) model.Dispatch {
			return func(action any) (any, error) {
				a, ok := model.AsAction(action)
				if !ok || !isDebug(store) || (d.filter != nil && !d.filter(a)) {
					return next(action)
				}

				logger := d.log(store)
				logger.Info("action", "action_type", a.Type, "payload", a.Payload)
				result, err := next(action)
				if err != nil {
					logger.Info("action failed", "action_type", a.Type, "error", err)
					return result, err
				}
				if d.logState {
					logger.Info("state", "action_type", a.Type, "state", store.GetState())
				}
				if d.logSelectors {
					if err := d.logSelectorValues(store); err != nil {
						logger.Warn("log selectors", "action_type", a.Type, "error", err)
					}
				}
				_ = d.logNextReaction(store)
				return result, nil
			}
		}
	}
}
