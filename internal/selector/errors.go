package selector

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownDependency is returned when a composed selector names a
	// dependency that is not defined.
	ErrUnknownDependency = errors.New("unknown selector dependency")

	// ErrCycle is returned when selector dependencies form a cycle.
	ErrCycle = errors.New("selector dependency cycle")
)

// ResolveError describes a definition that could not be resolved.
type ResolveError struct {
	// Selector is the definition being resolved.
	Selector string

	// Dependency is the missing dependency (unknown-dependency errors only).
	Dependency string

	// Path is the cycle, starting and ending at the same name (cycle errors only).
	Path []string

	Err error
}

func (e *ResolveError) Error() string {
	if errors.Is(e.Err, ErrCycle) {
		return fmt.Sprintf("selector dependency cycle: %s", strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("selector %q depends on unknown selector %q", e.Selector, e.Dependency)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
