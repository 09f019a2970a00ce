package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bundlecore/internal/selector"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeDuplicateBundle indicates two bundles with one name in a single
	// composition call.
	CodeDuplicateBundle ErrorCode = "DUPLICATE_BUNDLE"

	// CodeActionNotFound indicates a named action that is not registered.
	CodeActionNotFound ErrorCode = "ACTION_NOT_FOUND"

	// CodeSelectorNotFound indicates a selector name that is not registered.
	CodeSelectorNotFound ErrorCode = "SELECTOR_NOT_FOUND"

	// CodeReactorNotFound indicates a reactor name that is not registered.
	CodeReactorNotFound ErrorCode = "REACTOR_NOT_FOUND"

	// CodeInvalidAction indicates a dispatched value no stage understood.
	CodeInvalidAction ErrorCode = "INVALID_ACTION"

	// CodeUnknownDependency indicates a selector depending on an undefined one.
	CodeUnknownDependency ErrorCode = "UNKNOWN_DEPENDENCY"

	// CodeDependencyCycle indicates selectors depending on each other.
	CodeDependencyCycle ErrorCode = "DEPENDENCY_CYCLE"
)

// Error is a configuration or invariant error raised by a store.
type Error struct {
	Code    ErrorCode
	Message string

	// Name is the bundle, action, selector or reactor involved, if any.
	Name string

	Err error
}

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrDuplicateBundle   = &Error{Code: CodeDuplicateBundle}
	ErrActionNotFound    = &Error{Code: CodeActionNotFound}
	ErrSelectorNotFound  = &Error{Code: CodeSelectorNotFound}
	ErrReactorNotFound   = &Error{Code: CodeReactorNotFound}
	ErrInvalidAction     = &Error{Code: CodeInvalidAction}
	ErrUnknownDependency = &Error{Code: CodeUnknownDependency}
	ErrDependencyCycle   = &Error{Code: CodeDependencyCycle}
)

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case CodeActionNotFound, CodeSelectorNotFound, CodeReactorNotFound:
		return true
	}
	return false
}

func newError(code ErrorCode, name, format string, args ...any) *Error {
	return &Error{Code: code, Name: name, Message: fmt.Sprintf(format, args...)}
}

func actionNotFound(name string) *Error {
	return newError(CodeActionNotFound, name, "Action %q not found on the store", name)
}

func selectorNotFound(name string) *Error {
	return newError(CodeSelectorNotFound, name, "Selector %q not found on the store", name)
}

func reactorNotFound(name string) *Error {
	return newError(CodeReactorNotFound, name, "Reactor %q not found on the store", name)
}

// resolveError maps a selector resolution failure to a store error.
func resolveError(err error) error {
	var re *selector.ResolveError
	if !errors.As(err, &re) {
		return err
	}
	code := CodeUnknownDependency
	if errors.Is(err, selector.ErrCycle) {
		code = CodeDependencyCycle
	}
	return &Error{Code: code, Name: re.Selector, Message: re.Error(), Err: err}
}
