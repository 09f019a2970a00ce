package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileBundle parses a CUE value into a Declaration.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the bundle struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`bundle: counter: { initial: 0 }`)
//	decl, err := CompileBundle(v.LookupPath(cue.ParsePath("bundle.counter")))
func CompileBundle(v cue.Value) (*Declaration, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	d := &Declaration{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		d.Name = labels[len(labels)-1].String()
	}
	if d.Name == "" {
		return nil, &CompileError{Field: "bundle", Message: "bundle name is required", Pos: v.Pos()}
	}

	if pv := v.LookupPath(cue.ParsePath("priority")); pv.Exists() {
		p, err := pv.Int64()
		if err != nil {
			return nil, &CompileError{Field: "priority", Message: "priority must be an integer", Pos: pv.Pos()}
		}
		d.Priority = int(p)
	}

	if iv := v.LookupPath(cue.ParsePath("initial")); iv.Exists() {
		initial, err := toGo(iv, "initial")
		if err != nil {
			return nil, err
		}
		d.Initial = initial
	}

	var err error
	if d.Handlers, err = parseHandlers(v); err != nil {
		return nil, err
	}
	if d.Selectors, err = parseSelectors(v); err != nil {
		return nil, err
	}
	if d.Reactors, err = parseReactors(v); err != nil {
		return nil, err
	}
	if d.Actions, err = parseActions(v); err != nil {
		return nil, err
	}
	if d.Persist, err = parsePersist(v); err != nil {
		return nil, err
	}
	return d, nil
}

// fields iterates the struct at path in label order. A missing path
// yields nothing.
func fields(v cue.Value, path string, fn func(label string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return &CompileError{Field: path, Message: "must be a struct", Pos: sv.Pos()}
	}

	type entry struct {
		label string
		value cue.Value
	}
	var entries []entry
	for iter.Next() {
		entries = append(entries, entry{iter.Label(), iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].label < entries[j].label })

	for _, e := range entries {
		if err := fn(e.label, e.value); err != nil {
			return err
		}
	}
	return nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{Field: field + "." + name, Message: name + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field + "." + name, Message: name + " must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalValue(v cue.Value, name, field string) (any, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil, nil
	}
	return toGo(fv, field+"."+name)
}

func parseHandlers(v cue.Value) ([]Handler, error) {
	var out []Handler
	err := fields(v, "on", func(actionType string, hv cue.Value) error {
		field := "on." + actionType
		op, err := requiredString(hv, "op", field)
		if err != nil {
			return err
		}
		if !validOps[op] {
			return &CompileError{
				Field:   field + ".op",
				Message: fmt.Sprintf("unknown op %q, must be set, add, toggle, payload or merge", op),
				Pos:     hv.Pos(),
			}
		}
		value, err := optionalValue(hv, "value", field)
		if err != nil {
			return err
		}
		out = append(out, Handler{Action: actionType, Op: op, Value: value})
		return nil
	})
	return out, err
}

func parseSelectors(v cue.Value) ([]SelectorDecl, error) {
	var out []SelectorDecl
	err := fields(v, "selectors", func(name string, sv cue.Value) error {
		path, err := requiredString(sv, "path", "selectors."+name)
		if err != nil {
			return err
		}
		out = append(out, SelectorDecl{Name: name, Path: path})
		return nil
	})
	return out, err
}

func parseReactors(v cue.Value) ([]ReactorDecl, error) {
	var out []ReactorDecl
	err := fields(v, "reactors", func(name string, rv cue.Value) error {
		field := "reactors." + name

		wv := rv.LookupPath(cue.ParsePath("when"))
		if !wv.Exists() {
			return &CompileError{Field: field + ".when", Message: "when is required", Pos: rv.Pos()}
		}
		sel, err := requiredString(wv, "selector", field+".when")
		if err != nil {
			return err
		}
		op, err := requiredString(wv, "op", field+".when")
		if err != nil {
			return err
		}
		if !validCmps[op] {
			return &CompileError{
				Field:   field + ".when.op",
				Message: fmt.Sprintf("unknown op %q, must be eq, ne, gt, gte, lt, lte or truthy", op),
				Pos:     wv.Pos(),
			}
		}
		value, err := optionalValue(wv, "value", field+".when")
		if err != nil {
			return err
		}

		dv := rv.LookupPath(cue.ParsePath("dispatch"))
		if !dv.Exists() {
			return &CompileError{Field: field + ".dispatch", Message: "dispatch is required", Pos: rv.Pos()}
		}
		typ, err := requiredString(dv, "type", field+".dispatch")
		if err != nil {
			return err
		}
		payload, err := optionalValue(dv, "payload", field+".dispatch")
		if err != nil {
			return err
		}

		out = append(out, ReactorDecl{
			Name:     name,
			When:     Condition{Selector: sel, Op: op, Value: value},
			Dispatch: actionOf(typ, payload),
		})
		return nil
	})
	return out, err
}

func parseActions(v cue.Value) ([]ActionDecl, error) {
	var out []ActionDecl
	err := fields(v, "actions", func(name string, av cue.Value) error {
		typ, err := requiredString(av, "type", "actions."+name)
		if err != nil {
			return err
		}
		payload, err := optionalValue(av, "payload", "actions."+name)
		if err != nil {
			return err
		}
		out = append(out, ActionDecl{Name: name, Type: typ, Payload: payload})
		return nil
	})
	return out, err
}

func parsePersist(v cue.Value) ([]string, error) {
	pv := v.LookupPath(cue.ParsePath("persist"))
	if !pv.Exists() {
		return nil, nil
	}
	iter, err := pv.List()
	if err != nil {
		return nil, &CompileError{Field: "persist", Message: "persist must be a list of action types", Pos: pv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: "persist", Message: "persist entries must be strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// toGo converts a concrete CUE value to plain Go values: int, string, bool,
// nil, map[string]any and []any. Floats are rejected.
func toGo(v cue.Value, field string) (any, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &CompileError{Field: field, Message: "value must be concrete", Pos: v.Pos()}
	}

	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return int(n), nil
	case cue.FloatKind:
		return nil, &CompileError{Field: field, Message: "float values are forbidden, use int instead", Pos: v.Pos()}
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		i := 0
		for iter.Next() {
			item, err := toGo(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			out = append(out, item)
			i++
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			label := iter.Label()
			item, err := toGo(iter.Value(), field+"."+label)
			if err != nil {
				return nil, err
			}
			out[label] = item
		}
		return out, nil
	}
	return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported value kind %s", v.Kind()), Pos: v.Pos()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
