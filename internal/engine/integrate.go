package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bundlecore/internal/bundle"
)

// IntegrateBundles composes specs into the running store.
//
// The new bundles form their own chunk. Its selectors, reactors and actions
// are written over the existing ones, reactor names are appended, the root
// reducer is re-derived from every chunk and swapped in, and the
// persistence map is rebuilt. The new init hooks run last.
//
// If a new reducer fails on the replace transition, the store keeps its
// previous composition and no init hook runs. If a listener fails after the
// transition committed, the integration stands and its init hooks run. The
// listener error is returned with any init error.
//
// Slices of bundles not named in specs keep their state. Reusing an
// existing bundle name replaces that slice's reducer and logs a warning.
// Must not run concurrently with Dispatch.
func (s *Store) IntegrateBundles(specs ...bundle.Spec) error {
	if len(specs) == 0 {
		return nil
	}

	descriptors, err := normalize(specs)
	if err != nil {
		return err
	}
	chunk := bundle.NewChunk(descriptors)

	current := s.metadata()
	existing := current.bundleNames()
	for _, name := range chunk.BundleNames() {
		if existing[name] {
			s.logger.Warn("bundle replaced", "bundle", name)
		}
	}

	next, err := current.with(chunk)
	if err != nil {
		return err
	}

	// Listeners of the replace transition read the new metadata.
	s.mu.Lock()
	s.meta = next
	s.mu.Unlock()

	committed, err := s.container.ReplaceReducer(rootReducer(next.chunks))
	if !committed {
		s.mu.Lock()
		s.meta = current
		s.mu.Unlock()
		return fmt.Errorf("replace reducer: %w", err)
	}

	s.logger.Info("bundles integrated",
		"bundles", chunk.BundleNames(),
		"chunks", len(next.chunks),
	)

	initErr := s.runInits(chunk)
	if err != nil {
		return errors.Join(fmt.Errorf("replace reducer: %w", err), initErr)
	}
	return initErr
}
