// Package model provides the foundational types for bundlecore.
//
// This package contains the state, action and dispatch types shared by every
// other internal package. model imports nothing internal, so it remains the
// bottom layer with no circular dependencies.
//
// Key design constraints:
//   - State is a map keyed by slice (bundle) name; slices are opaque values
//   - Change detection uses reference identity (see Identical), never deep equality
//   - Persisted values are encoded as canonical JSON (see MarshalCanonical)
package model
