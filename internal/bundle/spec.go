package bundle

import (
	"math"

	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

// PriorityHighest sorts a bundle before every finite priority.
const PriorityHighest = math.MaxInt

// ActionCreator builds a dispatchable value (an action or a Thunk) from
// caller arguments.
type ActionCreator func(args ...any) any

// Middleware wraps the next dispatch stage.
type Middleware func(next model.Dispatch) model.Dispatch

// MiddlewareFactory receives the chunk the bundle was composed in, then the
// store, and returns the middleware to install.
type MiddlewareFactory func(chunk *Chunk) func(Store) Middleware

// InitFunc runs once the store is built or the bundle is integrated. The
// returned teardown, if any, runs on Destroy.
type InitFunc func(Store) (teardown func(), err error)

// ArgsFunc contributes extra arguments for thunks.
type ArgsFunc func(Store) map[string]any

// Spec is a bundle as authored.
type Spec struct {
	// Name is the bundle name and the key of its slice in the root state.
	Name string

	// Reducer owns the slice. Bundles without a reducer own no state.
	Reducer model.Reducer

	// Derived holds selectors and reactors in authoring order.
	Derived []Derived

	Actions    map[string]ActionCreator
	Priority   int
	Init       InitFunc
	Args       ArgsFunc
	Middleware MiddlewareFactory

	// Persist lists the action types after which this bundle's slice is
	// written to the cache.
	Persist []string
}

// Kind tags a derived value.
type Kind int

const (
	// KindReadable is a selector: a pure read exposed on the store.
	KindReadable Kind = iota + 1

	// KindReactive is a reactor: a read that returns an action to dispatch
	// when its condition holds.
	KindReactive
)

func (k Kind) String() string {
	switch k {
	case KindReadable:
		return "readable"
	case KindReactive:
		return "reactive"
	default:
		return "unknown"
	}
}

// Derived is a named derived value.
type Derived struct {
	Name string
	Kind Kind
	Def  selector.Definition
}

// Readable declares a selector.
func Readable(name string, def selector.Definition) Derived {
	return Derived{Name: name, Kind: KindReadable, Def: def}
}

// Reactive declares a reactor.
func Reactive(name string, def selector.Definition) Derived {
	return Derived{Name: name, Kind: KindReactive, Def: def}
}

// Plain returns an ActionCreator for a plain action of the given type. The
// first argument, if any, becomes the payload.
func Plain(actionType string) ActionCreator {
	return func(args ...any) any {
		a := model.Action{Type: actionType}
		if len(args) > 0 {
			a.Payload = args[0]
		}
		return a
	}
}
