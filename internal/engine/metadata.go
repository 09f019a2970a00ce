package engine

import (
	"slices"
	"sort"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/selector"
)

// metadata is everything a store has been composed from. It is never
// mutated; integration builds a new value and swaps it in.
type metadata struct {
	chunks       []*bundle.Chunk
	actions      *Registry
	selectorDefs *bundle.Ordered[selector.Definition]
	reactorDefs  *bundle.Ordered[selector.Definition]
	selectors    map[string]selector.Func
	reactors     map[string]selector.Func
	reactorNames []string
	persistence  map[string][]string
}

func newMetadata() *metadata {
	return &metadata{
		actions:      NewRegistry(),
		selectorDefs: bundle.NewOrdered[selector.Definition](),
		reactorDefs:  bundle.NewOrdered[selector.Definition](),
		selectors:    map[string]selector.Func{},
		reactors:     map[string]selector.Func{},
		persistence:  map[string][]string{},
	}
}

// with returns the metadata after merging chunk. Entries of chunk win over
// existing ones of the same name.
func (m *metadata) with(chunk *bundle.Chunk) (*metadata, error) {
	selectorDefs := m.selectorDefs.Clone()
	selectorDefs.Assign(chunk.Selectors())
	reactorDefs := m.reactorDefs.Clone()
	reactorDefs.Assign(chunk.Reactors())

	selectors, err := selector.Resolve(selectorDefs.Map())
	if err != nil {
		return nil, resolveError(err)
	}

	// Reactors may depend on selectors, so both are resolved together.
	combined := selectorDefs.Map()
	for _, name := range reactorDefs.Keys() {
		def, _ := reactorDefs.Get(name)
		combined[name] = def
	}
	resolved, err := selector.Resolve(combined)
	if err != nil {
		return nil, resolveError(err)
	}
	reactors := make(map[string]selector.Func, reactorDefs.Len())
	for _, name := range reactorDefs.Keys() {
		if fn, ok := resolved[name]; ok {
			reactors[name] = fn
		}
	}

	chunks := append(slices.Clone(m.chunks), chunk)
	return &metadata{
		chunks:       chunks,
		actions:      m.actions.merge(chunk.Actions()),
		selectorDefs: selectorDefs,
		reactorDefs:  reactorDefs,
		selectors:    selectors,
		reactors:     reactors,
		reactorNames: append(slices.Clone(m.reactorNames), chunk.Reactors().Keys()...),
		persistence:  bundle.PersistenceMap(chunks...),
	}, nil
}

func (m *metadata) selectorNames() []string {
	names := make([]string, 0, len(m.selectors))
	for name := range m.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *metadata) bundleNames() map[string]bool {
	names := make(map[string]bool)
	for _, c := range m.chunks {
		for _, name := range c.BundleNames() {
			names[name] = true
		}
	}
	return names
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func copyPersistence(p map[string][]string) map[string][]string {
	out := make(map[string][]string, len(p))
	for k, v := range p {
		out[k] = slices.Clone(v)
	}
	return out
}
