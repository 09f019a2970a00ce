// Package selector resolves named derived-value definitions into memoized
// accessor functions.
//
// A definition is either an Input, which reads state directly, or a Composed
// value that combines the results of other named selectors. Resolve orders
// definitions by dependency, rejects unknown dependencies and cycles, and
// wraps every definition in a last-result memo so unchanged inputs return
// the identical previous value. The subscription engine relies on that
// identity to decide what changed.
//
// Selector names may carry string parameters in brackets:
//
//	selectItem[a, b]  ->  name "selectItem", params ["a", "b"]
//
// and map to value names by dropping the "select" prefix:
//
//	selectUserData    ->  userData
package selector
