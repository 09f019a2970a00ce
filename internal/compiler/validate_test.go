package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/bundlecore/internal/model"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	decls := []*Declaration{{
		Name:      "a",
		Selectors: []SelectorDecl{{Name: "selectA", Path: "a"}},
		Reactors: []ReactorDecl{{
			Name:     "reactA",
			When:     Condition{Selector: "selectA", Op: CmpTruthy},
			Dispatch: model.Action{Type: "A_RESET"},
		}},
		Actions: []ActionDecl{{Name: "doA", Type: "A"}},
		Persist: []string{"A"},
	}}
	assert.Empty(t, Validate(decls))
}

func TestValidate_CrossBundleSelector(t *testing.T) {
	decls := []*Declaration{
		{Name: "a", Selectors: []SelectorDecl{{Name: "selectA", Path: "a"}}},
		{Name: "b", Reactors: []ReactorDecl{{
			Name:     "reactB",
			When:     Condition{Selector: "selectA", Op: CmpTruthy},
			Dispatch: model.Action{Type: "B"},
		}}},
	}
	assert.Empty(t, Validate(decls))
}

func TestValidate_Errors(t *testing.T) {
	decls := []*Declaration{
		{
			Name:      "a",
			Selectors: []SelectorDecl{{Name: "selectA", Path: " "}},
			Reactors: []ReactorDecl{{
				Name:     "reactA",
				When:     Condition{Selector: "selectMissing", Op: CmpTruthy},
				Dispatch: model.Action{Type: ""},
			}},
			Actions: []ActionDecl{{Name: "doA", Type: ""}},
			Persist: []string{""},
		},
		{
			Name:      "a",
			Selectors: []SelectorDecl{{Name: "selectA", Path: "a"}},
		},
	}

	errs := Validate(decls)
	assert.Equal(t, []string{
		ErrEmptySelectorPath,
		ErrUnknownSelector,
		ErrEmptyActionType,
		ErrEmptyActionType,
		ErrEmptyTrigger,
		ErrDuplicateBundle,
		ErrDuplicateName,
	}, codes(errs))
	assert.Equal(t, `[E103] bundle.a.reactors.reactA.when.selector: unknown selector "selectMissing"`, errs[1].Error())
}

func TestValidate_ActionsHaveOwnNamespace(t *testing.T) {
	decls := []*Declaration{{
		Name:      "a",
		Selectors: []SelectorDecl{{Name: "same", Path: "a"}},
		Actions:   []ActionDecl{{Name: "same", Type: "A"}},
	}}
	assert.Empty(t, Validate(decls))
}
