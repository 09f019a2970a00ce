package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bundlecore/internal/model"
)

func counterInput(calls *int) Input {
	return func(state model.State, _ ...string) any {
		*calls++
		return state["counter"]
	}
}

func TestResolve_Input(t *testing.T) {
	var calls int
	resolved, err := Resolve(map[string]Definition{
		"selectCount": counterInput(&calls),
	})
	require.NoError(t, err)

	state := model.State{"counter": 3}
	assert.Equal(t, 3, resolved["selectCount"](state))
	assert.Equal(t, 3, resolved["selectCount"](state))
	assert.Equal(t, 1, calls, "same state identity is memoized")

	next := model.State{"counter": 4}
	assert.Equal(t, 4, resolved["selectCount"](next))
	assert.Equal(t, 2, calls)
}

func TestResolve_ComposedMemoizesOnDependencyIdentity(t *testing.T) {
	var inputCalls, combineCalls int
	resolved, err := Resolve(map[string]Definition{
		"selectCount": counterInput(&inputCalls),
		"selectDouble": Create(func(v []any, _ ...string) any {
			combineCalls++
			return []int{v[0].(int) * 2}
		}, "selectCount"),
	})
	require.NoError(t, err)

	first := resolved["selectDouble"](model.State{"counter": 2})
	second := resolved["selectDouble"](model.State{"counter": 2, "other": true})

	assert.Equal(t, []int{4}, first)
	assert.Equal(t, 1, combineCalls, "unchanged dependency values skip combine")
	assert.True(t, model.Identical(first, second), "memoized result keeps its identity")
	assert.Equal(t, 2, inputCalls)
}

func TestResolve_Params(t *testing.T) {
	resolved, err := Resolve(map[string]Definition{
		"selectItem": Input(func(state model.State, params ...string) any {
			items := state["items"].(map[string]any)
			return items[params[0]]
		}),
	})
	require.NoError(t, err)

	state := model.State{"items": map[string]any{"a": 1, "b": 2}}
	assert.Equal(t, 1, resolved["selectItem"](state, "a"))
	assert.Equal(t, 2, resolved["selectItem"](state, "b"))
	assert.Equal(t, 1, resolved["selectItem"](state, "a"))
}

func TestResolve_ParamsFlowToDependencies(t *testing.T) {
	resolved, err := Resolve(map[string]Definition{
		"selectItem": Input(func(state model.State, params ...string) any {
			return state[params[0]]
		}),
		"selectItemLabel": Create(func(v []any, params ...string) any {
			return params[0] + "=" + v[0].(string)
		}, "selectItem"),
	})
	require.NoError(t, err)

	assert.Equal(t, "a=x", resolved["selectItemLabel"](model.State{"a": "x"}, "a"))
}

func TestResolve_UnknownDependency(t *testing.T) {
	_, err := Resolve(map[string]Definition{
		"selectA": Create(func([]any, ...string) any { return nil }, "selectMissing"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDependency))
	assert.Equal(t, `selector "selectA" depends on unknown selector "selectMissing"`, err.Error())

	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "selectMissing", re.Dependency)
}

func TestResolve_Cycle(t *testing.T) {
	noop := func([]any, ...string) any { return nil }
	_, err := Resolve(map[string]Definition{
		"selectA": Create(noop, "selectB"),
		"selectB": Create(noop, "selectC"),
		"selectC": Create(noop, "selectA"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))
	assert.Contains(t, err.Error(), "selectA -> selectB -> selectC -> selectA")
}

func TestResolve_SelfCycle(t *testing.T) {
	_, err := Resolve(map[string]Definition{
		"selectA": Create(func([]any, ...string) any { return nil }, "selectA"),
	})
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestResolve_IgnoresNilDefinitions(t *testing.T) {
	resolved, err := Resolve(map[string]Definition{
		"selectA": nil,
		"selectB": Input(func(model.State, ...string) any { return 1 }),
	})
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
}

func TestResolve_PanicsPropagate(t *testing.T) {
	resolved, err := Resolve(map[string]Definition{
		"selectBoom": Input(func(model.State, ...string) any { panic("boom") }),
	})
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() {
		resolved["selectBoom"](model.State{})
	})
}
