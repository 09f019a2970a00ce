package engine

import (
	"sort"

	"github.com/roach88/bundlecore/internal/bundle"
)

// Registry maps action names to their creators.
type Registry struct {
	creators *bundle.Ordered[bundle.ActionCreator]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{creators: bundle.NewOrdered[bundle.ActionCreator]()}
}

// Lookup returns the creator registered under name.
func (r *Registry) Lookup(name string) (bundle.ActionCreator, bool) {
	c, ok := r.creators.Get(name)
	return c, ok && c != nil
}

// merge returns a new registry with src's entries written over r's.
func (r *Registry) merge(src *bundle.Ordered[bundle.ActionCreator]) *Registry {
	next := &Registry{creators: r.creators.Clone()}
	next.creators.Assign(src)
	return next
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := r.creators.Keys()
	sort.Strings(names)
	return names
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	return r.creators.Len()
}
