package selector

import (
	"sort"
	"strings"
	"sync"

	"github.com/roach88/bundlecore/internal/model"
)

// Func is a resolved selector: a pure read of state.
type Func func(state model.State, params ...string) any

// Definition is an unresolved selector. It is either an Input or a Composed.
type Definition interface {
	dependencies() []string
}

// Input reads a value directly from state.
type Input func(state model.State, params ...string) any

func (Input) dependencies() []string { return nil }

// Composed combines the values of other named selectors.
// Combine receives the dependency values in Deps order.
type Composed struct {
	Deps    []string
	Combine func(values []any, params ...string) any
}

func (c Composed) dependencies() []string { return c.Deps }

// Create builds a Composed definition.
//
//	selector.Create(func(v []any, _ ...string) any {
//	    return v[0].(int) * 2
//	}, "selectCount")
func Create(combine func(values []any, params ...string) any, deps ...string) Composed {
	return Composed{Deps: deps, Combine: combine}
}

// Resolve turns definitions into memoized accessors.
//
// Dependencies are resolved first, so a composed selector always sees the
// memoized version of what it depends on. Every dependency must be defined
// in defs. Nil definitions are ignored.
func Resolve(defs map[string]Definition) (map[string]Func, error) {
	live := make(map[string]Definition, len(defs))
	for name, d := range defs {
		if d != nil {
			live[name] = d
		}
	}
	defs = live

	order, err := resolutionOrder(defs)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]Func, len(defs))
	for _, name := range order {
		switch d := defs[name].(type) {
		case Input:
			resolved[name] = memoizeInput(d)
		case Composed:
			deps := make([]Func, len(d.Deps))
			for i, dep := range d.Deps {
				deps[i] = resolved[dep]
			}
			resolved[name] = memoizeComposed(d.Combine, deps)
		}
	}
	return resolved, nil
}

// resolutionOrder returns definition names so that dependencies come
// before their dependents. Ties are broken by name.
func resolutionOrder(defs map[string]Definition) ([]string, error) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))
	order := make([]string, 0, len(defs))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, p := range path {
				if p == name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), name)
			return &ResolveError{Selector: name, Path: cycle, Err: ErrCycle}
		}

		state[name] = visiting
		path = append(path, name)

		for _, dep := range defs[name].dependencies() {
			if _, ok := defs[dep]; !ok {
				return &ResolveError{Selector: name, Dependency: dep, Err: ErrUnknownDependency}
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// memo holds the last inputs and result for one parameter set.
type memo struct {
	inputs []any
	result any
}

// memoTable keys memos by joined parameters.
type memoTable struct {
	mu      sync.Mutex
	entries map[string]*memo
}

func (t *memoTable) lookup(params []string, inputs []any) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.entries[strings.Join(params, "\x00")]
	if !ok || len(m.inputs) != len(inputs) {
		return nil, false
	}
	for i := range inputs {
		if !model.Identical(m.inputs[i], inputs[i]) {
			return nil, false
		}
	}
	return m.result, true
}

func (t *memoTable) store(params []string, inputs []any, result any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries == nil {
		t.entries = make(map[string]*memo)
	}
	t.entries[strings.Join(params, "\x00")] = &memo{inputs: inputs, result: result}
}

func memoizeInput(fn Input) Func {
	var table memoTable
	return func(state model.State, params ...string) any {
		inputs := []any{state}
		if v, ok := table.lookup(params, inputs); ok {
			return v
		}
		v := fn(state, params...)
		table.store(params, inputs, v)
		return v
	}
}

func memoizeComposed(combine func([]any, ...string) any, deps []Func) Func {
	var table memoTable
	return func(state model.State, params ...string) any {
		values := make([]any, len(deps))
		for i, dep := range deps {
			values[i] = dep(state, params...)
		}
		if v, ok := table.lookup(params, values); ok {
			return v
		}
		v := combine(values, params...)
		table.store(params, values, v)
		return v
	}
}
