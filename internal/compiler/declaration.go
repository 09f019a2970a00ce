// Package compiler turns CUE bundle declarations into bundle specs.
//
// A declaration describes a bundle without Go code:
//
//	bundle: counter: {
//	    priority: 0
//	    initial:  0
//	    on: INC:   {op: "add", value: 1}
//	    on: RESET: {op: "set", value: 0}
//	    selectors: selectCount: {path: "counter"}
//	    reactors: reactClamp: {
//	        when:     {selector: "selectCount", op: "gt", value: 2}
//	        dispatch: {type: "RESET"}
//	    }
//	    actions: doIncrement: {type: "INC"}
//	    persist: ["INC", "RESET"]
//	}
package compiler

import (
	"reflect"
	"strings"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

// Reducer operations.
const (
	OpSet     = "set"
	OpAdd     = "add"
	OpToggle  = "toggle"
	OpPayload = "payload"
	OpMerge   = "merge"
)

// Reactor condition operators.
const (
	CmpEq     = "eq"
	CmpNe     = "ne"
	CmpGt     = "gt"
	CmpGte    = "gte"
	CmpLt     = "lt"
	CmpLte    = "lte"
	CmpTruthy = "truthy"
)

var (
	validOps  = map[string]bool{OpSet: true, OpAdd: true, OpToggle: true, OpPayload: true, OpMerge: true}
	validCmps = map[string]bool{CmpEq: true, CmpNe: true, CmpGt: true, CmpGte: true, CmpLt: true, CmpLte: true, CmpTruthy: true}
)

// Handler reduces one action type.
type Handler struct {
	Action string `json:"action"`
	Op     string `json:"op"`
	Value  any    `json:"value,omitempty"`
}

// SelectorDecl reads a dotted path from the root state.
type SelectorDecl struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Condition compares a selector value.
type Condition struct {
	Selector string `json:"selector"`
	Op       string `json:"op"`
	Value    any    `json:"value,omitempty"`
}

// ReactorDecl dispatches an action while its condition holds.
type ReactorDecl struct {
	Name     string       `json:"name"`
	When     Condition    `json:"when"`
	Dispatch model.Action `json:"dispatch"`
}

// ActionDecl is a named action creator. A call argument replaces the
// declared payload.
type ActionDecl struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Declaration is a compiled bundle declaration. Collections are sorted by
// name, handlers by action type.
type Declaration struct {
	Name      string         `json:"name"`
	Priority  int            `json:"priority"`
	Initial   any            `json:"initial"`
	Handlers  []Handler      `json:"handlers"`
	Selectors []SelectorDecl `json:"selectors"`
	Reactors  []ReactorDecl  `json:"reactors"`
	Actions   []ActionDecl   `json:"actions"`
	Persist   []string       `json:"persist"`
}

// Spec builds the bundle. Each reactor's dispatch action is allocated once
// here, so repeated selections return the identical value.
func (d *Declaration) Spec() bundle.Spec {
	spec := bundle.Spec{
		Name:     d.Name,
		Priority: d.Priority,
		Persist:  append([]string(nil), d.Persist...),
	}

	if len(d.Handlers) > 0 || d.Initial != nil {
		spec.Reducer = d.reducer()
	}

	for _, s := range d.Selectors {
		path := splitPath(s.Path)
		spec.Derived = append(spec.Derived, bundle.Readable(s.Name, selector.Input(func(state model.State, _ ...string) any {
			return lookup(state, path)
		})))
	}

	for _, r := range d.Reactors {
		when := r.When
		act := &model.Action{Type: r.Dispatch.Type, Payload: r.Dispatch.Payload}
		spec.Derived = append(spec.Derived, bundle.Reactive(r.Name, selector.Create(func(v []any, _ ...string) any {
			if holds(when, v[0]) {
				return act
			}
			return nil
		}, when.Selector)))
	}

	if len(d.Actions) > 0 {
		spec.Actions = make(map[string]bundle.ActionCreator, len(d.Actions))
		for _, a := range d.Actions {
			a := a
			spec.Actions[a.Name] = func(args ...any) any {
				out := model.Action{Type: a.Type, Payload: a.Payload}
				if len(args) > 0 {
					out.Payload = args[0]
				}
				return out
			}
		}
	}
	return spec
}

func (d *Declaration) reducer() model.Reducer {
	handlers := make(map[string]Handler, len(d.Handlers))
	for _, h := range d.Handlers {
		handlers[h.Action] = h
	}
	initial := d.Initial

	return func(state any, action model.Action) any {
		if state == nil {
			state = initial
		}
		h, ok := handlers[action.Type]
		if !ok {
			return state
		}

		switch h.Op {
		case OpSet:
			return h.Value
		case OpAdd:
			by := h.Value
			if by == nil {
				by = 1
			}
			return add(state, by)
		case OpToggle:
			b, _ := state.(bool)
			return !b
		case OpPayload:
			return action.Payload
		case OpMerge:
			return merge(state, action.Payload)
		}
		return state
	}
}

func splitPath(path string) []string {
	path = strings.Trim(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func lookup(state model.State, path []string) any {
	var cur any = map[string]any(state)
	for _, seg := range path {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[seg]
		case model.State:
			cur = m[seg]
		default:
			return nil
		}
	}
	return cur
}

// number returns v as an int64 or float64.
func number(v any) (int64, float64, bool, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), 0, true, true
	case int64:
		return n, 0, true, true
	case float64:
		return 0, n, false, true
	}
	return 0, 0, false, false
}

func add(state, by any) any {
	si, sf, sInt, sOK := number(state)
	if state == nil {
		si, sInt, sOK = 0, true, true
	}
	bi, bf, bInt, bOK := number(by)
	if !sOK || !bOK {
		return state
	}
	if sInt && bInt {
		return int(si + bi)
	}
	if sInt {
		sf = float64(si)
	}
	if bInt {
		bf = float64(bi)
	}
	return sf + bf
}

func merge(state, payload any) any {
	p, ok := payload.(map[string]any)
	if !ok {
		return state
	}
	out := make(map[string]any)
	if s, ok := state.(map[string]any); ok {
		for k, v := range s {
			out[k] = v
		}
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	i, f, isInt, ok := number(v)
	if !ok {
		return 0, false
	}
	if isInt {
		return float64(i), true
	}
	return f, true
}

func holds(c Condition, v any) bool {
	switch c.Op {
	case CmpTruthy:
		return model.Truthy(v)
	case CmpEq, CmpNe:
		eq := reflect.DeepEqual(v, c.Value)
		if a, ok := toFloat(v); ok {
			if b, ok := toFloat(c.Value); ok {
				eq = a == b
			}
		}
		return eq == (c.Op == CmpEq)
	}

	a, ok := toFloat(v)
	if !ok {
		return false
	}
	b, ok := toFloat(c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case CmpGt:
		return a > b
	case CmpGte:
		return a >= b
	case CmpLt:
		return a < b
	case CmpLte:
		return a <= b
	}
	return false
}

func actionOf(typ string, payload any) model.Action {
	return model.Action{Type: typ, Payload: payload}
}
