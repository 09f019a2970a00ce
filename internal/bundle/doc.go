// Package bundle defines the unit of composition: a named slice of state with
// its reducer, derived values, action creators and lifecycle hooks.
//
// A Spec is what bundle authors write. Normalize turns it into a Descriptor,
// and NewChunk folds descriptors into an immutable Chunk ordered by
// descending priority. The engine package builds a running store from
// chunks; bundles program against the Store interface declared here.
//
// Derived values are tagged explicitly:
//
//	bundle.Spec{
//	    Name: "watcher",
//	    Derived: []bundle.Derived{
//	        bundle.Readable("selectCount", selector.Input(readCounter)),
//	        bundle.Reactive("reactClamp", selector.Create(clamp, "selectCount")),
//	    },
//	}
package bundle
