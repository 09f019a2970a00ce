package bundle

import (
	"log/slog"

	"github.com/roach88/bundlecore/internal/model"
)

// Store is the running-store surface that bundle hooks, middleware and
// thunks program against.
type Store interface {
	GetState() model.State
	Dispatch(action any) (any, error)

	// Subscribe registers a raw post-transition listener.
	Subscribe(fn model.Listener) (unsubscribe func())

	// Select evaluates selectors by (possibly parameterized) name and keys
	// the results by value name.
	Select(names ...string) (map[string]any, error)
	SelectAll() (map[string]any, error)
	Selector(name string, params ...string) (any, error)

	// Action dispatches the action produced by a registered creator.
	Action(name string, args ...any) (any, error)

	SubscribeToSelectors(names []string, fn func(changed map[string]any)) (unsubscribe func(), err error)
	SubscribeToAll(fn func(changed map[string]any)) (unsubscribe func())

	// ReactorNames returns every registered reactor name in registration
	// order, duplicates included.
	ReactorNames() []string
	React(name string) (any, error)

	PersistenceMap() map[string][]string
	Inventory() Inventory

	// Defer queues task for the next idle turn. Safe from any goroutine.
	Defer(task func() error)

	Logger() *slog.Logger
}

// Inventory lists what a store is composed of.
type Inventory struct {
	ID          string              `json:"id"`
	Bundles     []string            `json:"bundles"`
	Selectors   []string            `json:"selectors"`
	Actions     []string            `json:"actions"`
	Reactors    []string            `json:"reactors"`
	Persistence map[string][]string `json:"persistence"`
	Chunks      int                 `json:"chunks"`
}

// Thunk is a dispatchable function. The thunk middleware calls it instead of
// forwarding it to the reducers.
type Thunk func(dispatch model.Dispatch, extra Extra) (any, error)

// Extra carries the store and the union of every bundle's extra arguments.
type Extra struct {
	Store  Store
	values map[string]any
}

// NewExtra creates an Extra.
func NewExtra(store Store, values map[string]any) Extra {
	return Extra{Store: store, values: values}
}

// Value returns the extra argument stored under key.
func (e Extra) Value(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Len returns how many extra arguments are present.
func (e Extra) Len() int {
	return len(e.values)
}
