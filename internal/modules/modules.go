// Package modules holds small stock bundles.
package modules

import (
	"strings"
	"time"

	"github.com/roach88/bundlecore/internal/bundle"
	"github.com/roach88/bundlecore/internal/model"
	"github.com/roach88/bundlecore/internal/selector"
)

// ActionResetTime clears the appTime slice.
const ActionResetTime = "RESET_TIME"

// AsyncCount counts in-flight async work by action type suffix: _STARTED
// adds one, _SUCCEEDED and _FAILED subtract one.
func AsyncCount() bundle.Spec {
	return bundle.Spec{
		Name:     "asyncCount",
		Priority: bundle.PriorityHighest,
		Reducer: func(state any, action model.Action) any {
			n, _ := state.(int)
			switch {
			case strings.HasSuffix(action.Type, "_STARTED"):
				return n + 1
			case strings.HasSuffix(action.Type, "_SUCCEEDED"), strings.HasSuffix(action.Type, "_FAILED"):
				return n - 1
			}
			return n
		},
		Derived: []bundle.Derived{
			bundle.Readable("selectAsyncCount", selector.Input(func(s model.State, _ ...string) any {
				n, _ := s["asyncCount"].(int)
				return n
			})),
			bundle.Readable("selectAsyncActive", selector.Create(func(v []any, _ ...string) any {
				return v[0].(int) > 0
			}, "selectAsyncCount")),
		},
	}
}

// AppTime stamps the time of every action. now defaults to time.Now.
func AppTime(now func() time.Time) bundle.Spec {
	if now == nil {
		now = time.Now
	}
	return bundle.Spec{
		Name:     "appTime",
		Priority: bundle.PriorityHighest,
		Reducer: func(_ any, action model.Action) any {
			if action.Type == ActionResetTime {
				return nil
			}
			return now()
		},
		Derived: []bundle.Derived{
			bundle.Readable("selectAppTime", selector.Input(func(s model.State, _ ...string) any {
				return s["appTime"]
			})),
		},
		Actions: map[string]bundle.ActionCreator{
			"resetAppTime": bundle.Plain(ActionResetTime),
		},
	}
}
