package engine

import (
	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
)

// thunkStage calls dispatched thunks with the store's dispatch and the extra
// arguments instead of forwarding them.
func thunkStage(dispatch model.Dispatch, extra bundle.Extra) bundle.Middleware {
	return func(next model.Dispatch) model.Dispatch {
		return func(action any) (any, error) {
			switch fn := action.(type) {
			case bundle.Thunk:
				return fn(dispatch, extra)
			case func(model.Dispatch, bundle.Extra) (any, error):
				return fn(dispatch, extra)
			}
			return next(action)
		}
	}
}

// chain applies middleware so that mw[0] is outermost.
func chain(base model.Dispatch, mw ...bundle.Middleware) model.Dispatch {
	d := base
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			d = mw[i](d)
		}
	}
	return d
}

// extraArgs collects every provider's arguments. Later providers win; the
// store itself is always available as Extra.Store.
func extraArgs(s bundle.Store, providers []bundle.ArgsFunc) bundle.Extra {
	values := make(map[string]any)
	for _, p := range providers {
		for k, v := range p(s) {
			values[k] = v
		}
	}
	return bundle.NewExtra(s, values)
}
