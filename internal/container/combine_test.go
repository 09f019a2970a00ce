package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bundlecore/internal/model"
)

func TestCombineReducers_SameRootWhenUnchanged(t *testing.T) {
	root := CombineReducers([]string{"counter"}, map[string]model.Reducer{
		"counter": counterReducer,
	})

	state := model.State{"counter": 1}
	next, err := root(state, model.Action{Type: "NOOP"})
	require.NoError(t, err)

	assert.True(t, model.Identical(state, next))
}

func TestCombineReducers_NewRootWhenChanged(t *testing.T) {
	root := CombineReducers([]string{"counter"}, map[string]model.Reducer{
		"counter": counterReducer,
	})

	state := model.State{"counter": 1}
	next, err := root(state, model.Action{Type: "INC"})
	require.NoError(t, err)

	assert.False(t, model.Identical(state, next))
	assert.Equal(t, 1, state["counter"], "previous state is not mutated")
	assert.Equal(t, 2, next["counter"])
}

func TestCombineReducers_DropsUnknownKeys(t *testing.T) {
	root := CombineReducers([]string{"counter"}, map[string]model.Reducer{
		"counter": counterReducer,
	})

	next, err := root(model.State{"counter": 1, "stale": "x"}, model.Action{Type: "NOOP"})
	require.NoError(t, err)
	assert.Equal(t, model.State{"counter": 1}, next)
}

func TestCombineReducers_InitializesMissingSlices(t *testing.T) {
	root := CombineReducers([]string{"a", "b"}, map[string]model.Reducer{
		"a": counterReducer,
		"b": counterReducer,
	})

	next, err := root(nil, model.Action{Type: model.ActionInit})
	require.NoError(t, err)
	assert.Equal(t, model.State{"a": 0, "b": 0}, next)
}

func TestCombineReducers_RunsInNameOrder(t *testing.T) {
	var order []string
	tracking := func(name string) model.Reducer {
		return func(state any, _ model.Action) any {
			order = append(order, name)
			return state
		}
	}

	root := CombineReducers([]string{"z", "a", "m"}, map[string]model.Reducer{
		"a": tracking("a"),
		"m": tracking("m"),
		"z": tracking("z"),
	})
	_, err := root(model.State{}, model.Action{Type: "X"})
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, order)
}

func TestCombineReducers_SkipsNamesWithoutReducer(t *testing.T) {
	root := CombineReducers([]string{"a", "ghost", "a"}, map[string]model.Reducer{
		"a": counterReducer,
	})

	next, err := root(nil, model.Action{Type: "INC"})
	require.NoError(t, err)
	assert.Equal(t, model.State{"a": 1}, next)
}
