package bundle

import (
	"slices"
	"sort"

	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

// Chunk is the immutable result of composing descriptors.
type Chunk struct {
	descriptors []Descriptor
	reducers    *Ordered[model.Reducer]
	selectors   *Ordered[selector.Definition]
	reactors    *Ordered[selector.Definition]
	actions     *Ordered[ActionCreator]
	inits       []InitFunc
	args        []ArgsFunc
	middleware  []MiddlewareFactory
}

// NewChunk stable-sorts descriptors by descending priority and folds them
// left to right.
//
// Selector, reactor and action maps merge last-write-wins in sorted order.
// A later, lower-priority descriptor therefore overwrites an earlier,
// higher-priority one's entry of the same name.
func NewChunk(descriptors []Descriptor) *Chunk {
	sorted := slices.Clone(descriptors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	c := &Chunk{
		descriptors: sorted,
		reducers:    NewOrdered[model.Reducer](),
		selectors:   NewOrdered[selector.Definition](),
		reactors:    NewOrdered[selector.Definition](),
		actions:     NewOrdered[ActionCreator](),
	}

	for _, d := range sorted {
		c.selectors.Assign(d.Selectors)
		c.reactors.Assign(d.Reactors)
		c.actions.Assign(d.Actions)
		if d.Reducer != nil {
			c.reducers.Set(d.Name, d.Reducer)
		}
		if d.Init != nil {
			c.inits = append(c.inits, d.Init)
		}
		if d.Args != nil {
			c.args = append(c.args, d.Args)
		}
		if d.Middleware != nil {
			c.middleware = append(c.middleware, d.Middleware)
		}
	}

	return c
}

// BundleNames returns bundle names in priority order.
func (c *Chunk) BundleNames() []string {
	names := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		names[i] = d.Name
	}
	return names
}

// Descriptors returns the descriptors in priority order.
func (c *Chunk) Descriptors() []Descriptor {
	return slices.Clone(c.descriptors)
}

// ReducerNames returns the names of bundles that own state, in priority order.
func (c *Chunk) ReducerNames() []string {
	return c.reducers.Keys()
}

// Reducers returns slice reducers keyed by bundle name.
func (c *Chunk) Reducers() map[string]model.Reducer {
	return c.reducers.Map()
}

// Selectors returns the merged selector definitions.
func (c *Chunk) Selectors() *Ordered[selector.Definition] {
	return c.selectors.Clone()
}

// Reactors returns the merged reactor definitions.
func (c *Chunk) Reactors() *Ordered[selector.Definition] {
	return c.reactors.Clone()
}

// Actions returns the merged action creators.
func (c *Chunk) Actions() *Ordered[ActionCreator] {
	return c.actions.Clone()
}

// Inits returns lifecycle hooks in priority order.
func (c *Chunk) Inits() []InitFunc {
	return slices.Clone(c.inits)
}

// ArgProviders returns extra-argument providers in priority order.
func (c *Chunk) ArgProviders() []ArgsFunc {
	return slices.Clone(c.args)
}

// Middleware returns middleware factories in priority order.
func (c *Chunk) Middleware() []MiddlewareFactory {
	return slices.Clone(c.middleware)
}

// PersistenceMap maps each persistence trigger to the slices written after
// it, in chunk order and then bundle order.
func PersistenceMap(chunks ...*Chunk) map[string][]string {
	out := make(map[string][]string)
	for _, c := range chunks {
		for _, d := range c.descriptors {
			for _, trigger := range d.Persist {
				out[trigger] = append(out[trigger], d.Name)
			}
		}
	}
	return out
}
