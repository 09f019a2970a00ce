package bundle

import (
	"slices"
	"sort"

	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

// Descriptor is the normalized form of a Spec.
type Descriptor struct {
	Name       string
	Reducer    model.Reducer
	Selectors  *Ordered[selector.Definition]
	Reactors   *Ordered[selector.Definition]
	Actions    *Ordered[ActionCreator]
	Priority   int
	Init       InitFunc
	Args       ArgsFunc
	Middleware MiddlewareFactory
	Persist    []string
}

// Normalize splits the derived values of spec into selectors and reactors by
// tag and orders its actions by name. Repeated names within one collection
// keep their first position and the last definition.
func Normalize(spec Spec) Descriptor {
	d := Descriptor{
		Name:       spec.Name,
		Reducer:    spec.Reducer,
		Selectors:  NewOrdered[selector.Definition](),
		Reactors:   NewOrdered[selector.Definition](),
		Actions:    NewOrdered[ActionCreator](),
		Priority:   spec.Priority,
		Init:       spec.Init,
		Args:       spec.Args,
		Middleware: spec.Middleware,
		Persist:    slices.Clone(spec.Persist),
	}

	for _, dv := range spec.Derived {
		switch dv.Kind {
		case KindReadable:
			d.Selectors.Set(dv.Name, dv.Def)
		case KindReactive:
			d.Reactors.Set(dv.Name, dv.Def)
		}
	}

	names := make([]string, 0, len(spec.Actions))
	for name := range spec.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d.Actions.Set(name, spec.Actions[name])
	}

	return d
}
