// Package engine builds and runs composed stores.
//
// A Store is created from bundle specs by New (or a Factory returned by
// Compose). Construction normalizes the specs, composes them into a chunk,
// derives the root reducer and wraps it with batch and replace-state
// support, then installs the dispatch chain:
//
//	thunk stage -> bundle middleware (priority order) -> dev tools -> reducers
//
// The store owns the subscription engine. After every reduced dispatch it
// evaluates the watched selectors against one state snapshot, diffs them by
// identity against the previous pass and calls each subscription whose
// watched names changed.
//
// Concurrency model:
//   - Dispatch, selector evaluation and subscription callbacks run on the
//     calling goroutine, one dispatch at a time.
//   - Defer and Enqueue are safe from any goroutine. Deferred tasks run on
//     Flush or inside the single Run loop.
//   - IntegrateBundles must be serialized with Dispatch.
package engine
