package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

func TestNew_InitialState(t *testing.T) {
	s := newTestStore(t, counterBundle(), watcherBundle())

	assert.Equal(t, model.State{"counter": 0}, s.GetState())
	count, err := s.Selector("selectCount")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNew_Preloaded(t *testing.T) {
	s, err := Compose(counterBundle())(model.State{"counter": 7}, WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Equal(t, 7, s.GetState()["counter"])
}

func TestNew_DuplicateBundle(t *testing.T) {
	_, err := New(nil, []bundle.Spec{counterBundle(), counterBundle()}, WithLogger(discardLogger()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateBundle))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "counter", e.Name)
}

func TestNew_UnknownSelectorDependency(t *testing.T) {
	_, err := New(nil, []bundle.Spec{{
		Name: "broken",
		Derived: []bundle.Derived{
			bundle.Readable("selectA", selector.Create(func([]any, ...string) any { return nil }, "selectMissing")),
		},
	}}, WithLogger(discardLogger()))

	assert.True(t, errors.Is(err, ErrUnknownDependency))
	assert.True(t, errors.Is(err, selector.ErrUnknownDependency), "the resolver error stays in the chain")
}

func TestNew_SelectorCycle(t *testing.T) {
	noop := func([]any, ...string) any { return nil }
	_, err := New(nil, []bundle.Spec{{
		Name: "cyclic",
		Derived: []bundle.Derived{
			bundle.Readable("selectA", selector.Create(noop, "selectB")),
			bundle.Readable("selectB", selector.Create(noop, "selectA")),
		},
	}}, WithLogger(discardLogger()))

	assert.True(t, errors.Is(err, ErrDependencyCycle))
}

func TestNew_ID(t *testing.T) {
	s, err := New(nil, nil, WithLogger(discardLogger()), WithIDGenerator(NewFixedGenerator("store-1")))
	require.NoError(t, err)
	assert.Equal(t, "store-1", s.ID())
	assert.Equal(t, "store-1", s.Inventory().ID)
}

func TestDispatch_PlainAndPointer(t *testing.T) {
	s := newTestStore(t, counterBundle())

	mustDispatch(t, s, model.Action{Type: "INC"})
	mustDispatch(t, s, &model.Action{Type: "INC"})

	assert.Equal(t, 2, s.GetState()["counter"])
	assert.Equal(t, int64(2), s.Seq())
}

func TestDispatch_InvalidValue(t *testing.T) {
	s := newTestStore(t, counterBundle())

	_, err := s.Dispatch("INC")
	assert.True(t, errors.Is(err, ErrInvalidAction))

	_, err = s.Dispatch(model.Action{})
	assert.True(t, errors.Is(err, ErrInvalidAction), "empty type is rejected")
}

func TestDispatch_BatchIsTransparent(t *testing.T) {
	actions := []model.Action{
		{Type: "INC"},
		{Type: "ADD", Payload: 5},
		{Type: "RESET"},
		{Type: "ADD", Payload: 2},
		{Type: "INC"},
	}

	sequential := newTestStore(t, counterBundle())
	for _, a := range actions {
		mustDispatch(t, sequential, a)
	}

	batched := newTestStore(t, counterBundle())
	var notified int
	batched.Subscribe(func() error { notified++; return nil })
	mustDispatch(t, batched, model.Batch(actions...))

	assert.Equal(t, sequential.GetState(), batched.GetState())
	assert.Equal(t, 3, batched.GetState()["counter"])
	assert.Equal(t, 1, notified, "one transition for the whole batch")
}

func TestDispatch_NestedBatch(t *testing.T) {
	s := newTestStore(t, counterBundle())
	mustDispatch(t, s, model.Batch(
		model.Action{Type: "INC"},
		model.Batch(model.Action{Type: "INC"}, model.Action{Type: "INC"}),
	))
	assert.Equal(t, 3, s.GetState()["counter"])
}

func TestDispatch_ReplaceState(t *testing.T) {
	s := newTestStore(t, counterBundle())
	mustDispatch(t, s, model.Action{Type: "INC"})

	payload := model.State{"counter": 42}
	mustDispatch(t, s, model.ReplaceState(payload))

	assert.True(t, model.Identical(payload, s.GetState()), "state is the payload itself")
}

func TestDispatch_ReplaceStateInvalidPayload(t *testing.T) {
	s := newTestStore(t, counterBundle())

	_, err := s.Dispatch(model.Action{Type: model.ActionReplaceState, Payload: 42})
	assert.True(t, errors.Is(err, ErrInvalidAction))
	assert.Equal(t, 0, s.GetState()["counter"])
}

func TestDispatch_ReducerPanicPropagates(t *testing.T) {
	s := newTestStore(t, bundle.Spec{
		Name: "fragile",
		Reducer: func(state any, action model.Action) any {
			if action.Type == "BREAK" {
				panic("reducer broke")
			}
			return state
		},
	})

	assert.PanicsWithValue(t, "reducer broke", func() {
		_, _ = s.Dispatch(model.Action{Type: "BREAK"})
	})
}

func TestAction_Named(t *testing.T) {
	s := newTestStore(t, counterBundle())

	_, err := s.Action("doAdd", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, s.GetState()["counter"])
}

func TestAction_NotFound(t *testing.T) {
	s := newTestStore(t, counterBundle())

	_, err := s.Action("doMissing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrActionNotFound))
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), `Action "doMissing" not found on the store`)
}

func TestAction_NotFoundBeforeIntegration(t *testing.T) {
	s := newTestStore(t, watcherBundle())

	_, err := s.Action("doIncrement")
	assert.True(t, errors.Is(err, ErrActionNotFound))

	require.NoError(t, s.IntegrateBundles(counterBundle()))
	_, err = s.Action("doIncrement")
	require.NoError(t, err)
	assert.Equal(t, 1, s.GetState()["counter"])
}

func TestSelect_ValueNames(t *testing.T) {
	s := newTestStore(t, counterBundle(), watcherBundle(), bundle.Spec{
		Name: "items",
		Reducer: func(state any, _ model.Action) any {
			if state == nil {
				return map[string]any{"a": "apple", "b": "banana"}
			}
			return state
		},
		Derived: []bundle.Derived{
			bundle.Readable("selectItem", selector.Input(func(state model.State, params ...string) any {
				if len(params) == 0 {
					return nil
				}
				return state["items"].(map[string]any)[params[0]]
			})),
		},
	})

	got, err := s.Select("selectCount", "selectItem[b]")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 0, "item[b]": "banana"}, got)

	all, err := s.SelectAll()
	require.NoError(t, err)
	assert.Contains(t, all, "count")
	v, ok := all["item"]
	assert.True(t, ok, "parameterized selectors are evaluated without params")
	assert.Nil(t, v)
}

func TestSelect_NotFound(t *testing.T) {
	s := newTestStore(t, counterBundle())

	_, err := s.Select("selectNothing")
	assert.True(t, errors.Is(err, ErrSelectorNotFound))

	_, err = s.Selector("selectNothing")
	assert.True(t, errors.Is(err, ErrSelectorNotFound))
}

func TestReact_NotFound(t *testing.T) {
	s := newTestStore(t, counterBundle())

	_, err := s.React("reactNothing")
	assert.True(t, errors.Is(err, ErrReactorNotFound))
}

func TestThunk_ExtraArgs(t *testing.T) {
	var seen bundle.Extra
	s := newTestStore(t, counterBundle(), bundle.Spec{
		Name: "api",
		Args: func(bundle.Store) map[string]any {
			return map[string]any{"client": "fake-client", "shared": "api"}
		},
	}, bundle.Spec{
		Name:     "later",
		Priority: -1,
		Args: func(bundle.Store) map[string]any {
			return map[string]any{"shared": "later"}
		},
	})

	thunk := bundle.Thunk(func(dispatch model.Dispatch, extra bundle.Extra) (any, error) {
		seen = extra
		return dispatch(model.Action{Type: "INC"})
	})
	_, err := s.Dispatch(thunk)
	require.NoError(t, err)

	client, _ := seen.Value("client")
	shared, _ := seen.Value("shared")
	assert.Equal(t, "fake-client", client)
	assert.Equal(t, "later", shared, "later providers win")
	assert.Same(t, s, seen.Store)
	assert.Equal(t, 1, s.GetState()["counter"])
}

func TestThunk_UnnamedFunc(t *testing.T) {
	s := newTestStore(t, counterBundle())

	_, err := s.Dispatch(func(dispatch model.Dispatch, _ bundle.Extra) (any, error) {
		return dispatch(model.Action{Type: "INC"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.GetState()["counter"])
}

func TestThunk_FromActionCreator(t *testing.T) {
	spec := counterBundle()
	spec.Actions["doTwice"] = func(...any) any {
		return bundle.Thunk(func(dispatch model.Dispatch, extra bundle.Extra) (any, error) {
			if _, err := dispatch(model.Action{Type: "INC"}); err != nil {
				return nil, err
			}
			return extra.Store.Action("doIncrement")
		})
	}
	s := newTestStore(t, spec)

	_, err := s.Action("doTwice")
	require.NoError(t, err)
	assert.Equal(t, 2, s.GetState()["counter"])
}

func TestMiddleware_PriorityOrder(t *testing.T) {
	var order []string
	tracing := func(name string) bundle.MiddlewareFactory {
		return func(*bundle.Chunk) func(bundle.Store) bundle.Middleware {
			return func(bundle.Store) bundle.Middleware {
				return func(next model.Dispatch) model.Dispatch {
					return func(action any) (any, error) {
						order = append(order, name)
						return next(action)
					}
				}
			}
		}
	}

	var devtools []string
	s, err := New(nil, []bundle.Spec{
		counterBundle(),
		{Name: "low", Priority: 1, Middleware: tracing("low")},
		{Name: "high", Priority: 9, Middleware: tracing("high")},
	}, WithLogger(discardLogger()), WithDevTools(func(next model.Dispatch) model.Dispatch {
		return func(action any) (any, error) {
			a, _ := model.AsAction(action)
			devtools = append(devtools, a.Type)
			order = append(order, "devtools")
			return next(action)
		}
	}))
	require.NoError(t, err)

	mustDispatch(t, s, model.Action{Type: "INC"})
	assert.Equal(t, []string{"high", "low", "devtools"}, order)
	assert.Equal(t, []string{"INC"}, devtools)
}

func TestMiddleware_SeesThunkDispatchesOnly(t *testing.T) {
	var seen []string
	s := newTestStore(t, counterBundle(), bundle.Spec{
		Name: "spy",
		Middleware: func(*bundle.Chunk) func(bundle.Store) bundle.Middleware {
			return func(bundle.Store) bundle.Middleware {
				return func(next model.Dispatch) model.Dispatch {
					return func(action any) (any, error) {
						if a, ok := model.AsAction(action); ok {
							seen = append(seen, a.Type)
						}
						return next(action)
					}
				}
			}
		},
	})

	_, err := s.Dispatch(bundle.Thunk(func(dispatch model.Dispatch, _ bundle.Extra) (any, error) {
		return dispatch(model.Action{Type: "INC"})
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"INC"}, seen, "the thunk itself never reaches bundle middleware")
}

func TestInit_TeardownOnDestroy(t *testing.T) {
	var events []string
	hook := func(name string) bundle.InitFunc {
		return func(bundle.Store) (func(), error) {
			events = append(events, "init "+name)
			return func() { events = append(events, "teardown "+name) }, nil
		}
	}

	s, err := New(nil, []bundle.Spec{
		{Name: "a", Init: hook("a")},
		{Name: "b", Priority: 2, Init: hook("b")},
	}, WithLogger(discardLogger()))
	require.NoError(t, err)

	s.Destroy()
	s.Destroy()

	assert.Equal(t, []string{"init b", "init a", "teardown b", "teardown a"}, events)
}

func TestInit_ErrorTearsDownEarlierHooks(t *testing.T) {
	var tornDown bool
	_, err := New(nil, []bundle.Spec{
		{Name: "ok", Priority: 1, Init: func(bundle.Store) (func(), error) {
			return func() { tornDown = true }, nil
		}},
		{Name: "bad", Init: func(bundle.Store) (func(), error) {
			return nil, errors.New("no connection")
		}},
	}, WithLogger(discardLogger()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), `init bundle "bad"`)
	assert.True(t, tornDown)
}

func TestInventory(t *testing.T) {
	spec := counterBundle()
	spec.Persist = []string{"INC"}
	s := newTestStore(t, spec, watcherBundle(), bundle.Spec{
		Name: "guard",
		Derived: []bundle.Derived{
			bundle.Reactive("reactNever", selector.Input(func(model.State, ...string) any { return nil })),
		},
	})

	inv := s.Inventory()
	assert.Equal(t, []string{"counter", "guard", "watcher"}, inv.Bundles)
	assert.Equal(t, []string{"selectCount"}, inv.Selectors)
	assert.Equal(t, []string{"doAdd", "doIncrement"}, inv.Actions)
	assert.Equal(t, []string{"reactNever"}, inv.Reactors)
	assert.Equal(t, map[string][]string{"INC": {"counter"}}, inv.Persistence)
	assert.Equal(t, 1, inv.Chunks)
}

func TestPersistenceMap_IsACopy(t *testing.T) {
	spec := counterBundle()
	spec.Persist = []string{"INC"}
	s := newTestStore(t, spec)

	m := s.PersistenceMap()
	m["INC"][0] = "mutated"
	assert.Equal(t, []string{"counter"}, s.PersistenceMap()["INC"])
}
