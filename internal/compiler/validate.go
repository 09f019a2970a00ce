package compiler

import (
	"fmt"
	"strings"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateBundle   = "E101" // bundle declared twice
	ErrDuplicateName     = "E102" // selector, reactor or action name reused
	ErrUnknownSelector   = "E103" // reactor condition names no declared selector
	ErrEmptyActionType   = "E104" // action or dispatch type is empty
	ErrEmptyTrigger      = "E105" // persist entry is empty
	ErrEmptySelectorPath = "E106" // selector path is empty
)

// ValidationError represents a declaration validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks declarations against each other.
// Returns all errors found (does not fail-fast).
func Validate(decls []*Declaration) []ValidationError {
	var errs []ValidationError

	bundles := make(map[string]bool)
	selectors := make(map[string]bool)
	for _, d := range decls {
		for _, s := range d.Selectors {
			selectors[s.Name] = true
		}
	}

	names := make(map[string]string)
	// Actions have their own namespace; selectors and reactors share one.
	claim := func(d *Declaration, kind, name string) {
		ns := "derived:" + name
		if kind == "actions" {
			ns = "actions:" + name
		}
		if owner, ok := names[ns]; ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bundle.%s.%s.%s", d.Name, kind, name),
				Message: fmt.Sprintf("%q is already declared by bundle %q", name, owner),
				Code:    ErrDuplicateName,
			})
			return
		}
		names[ns] = d.Name
	}

	for _, d := range decls {
		if bundles[d.Name] {
			errs = append(errs, ValidationError{
				Field:   "bundle." + d.Name,
				Message: fmt.Sprintf("bundle %q is declared more than once", d.Name),
				Code:    ErrDuplicateBundle,
			})
		}
		bundles[d.Name] = true

		for _, s := range d.Selectors {
			claim(d, "selectors", s.Name)
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("bundle.%s.selectors.%s.path", d.Name, s.Name),
					Message: "path must be non-empty",
					Code:    ErrEmptySelectorPath,
				})
			}
		}

		for _, r := range d.Reactors {
			field := fmt.Sprintf("bundle.%s.reactors.%s", d.Name, r.Name)
			claim(d, "reactors", r.Name)
			if !selectors[r.When.Selector] {
				errs = append(errs, ValidationError{
					Field:   field + ".when.selector",
					Message: fmt.Sprintf("unknown selector %q", r.When.Selector),
					Code:    ErrUnknownSelector,
				})
			}
			if strings.TrimSpace(r.Dispatch.Type) == "" {
				errs = append(errs, ValidationError{
					Field:   field + ".dispatch.type",
					Message: "dispatch type must be non-empty",
					Code:    ErrEmptyActionType,
				})
			}
		}

		for _, a := range d.Actions {
			claim(d, "actions", a.Name)
			if strings.TrimSpace(a.Type) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("bundle.%s.actions.%s.type", d.Name, a.Name),
					Message: "action type must be non-empty",
					Code:    ErrEmptyActionType,
				})
			}
		}

		for i, trigger := range d.Persist {
			if strings.TrimSpace(trigger) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("bundle.%s.persist[%d]", d.Name, i),
					Message: "persist trigger must be non-empty",
					Code:    ErrEmptyTrigger,
				})
			}
		}
	}
	return errs
}
