// Package param resolves the parameters sent with a provider call.
//
// Resolution starts from the model's declared defaults, applies caller
// overrides, validates every value against its spec and finally enforces
// mutual exclusivity with a first-declared-wins policy:
//
//  1. Non-default values are visited in declaration order. A value that is
//     exclusive with an already kept value is dropped and reported as a
//     [Diagnostic].
//  2. Default values are visited in declaration order. A default that is
//     exclusive with a kept value is dropped silently.
//
// A caller value equal to the declared default counts as a default. A
// non-default value therefore always beats a default, and among non-default
// values the parameter declared first wins.
package param

import (
	"fmt"
	"maps"
	"slices"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/registry"
)

// Diagnostic reports a caller value that was dropped because it conflicts
// with a parameter declared earlier.
type Diagnostic struct {
	Parameter     string
	Value         any
	ConflictsWith string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("parameter %q dropped: mutually exclusive with %q", d.Parameter, d.ConflictsWith)
}

type candidate struct {
	spec  registry.ParameterSpec
	value any
	// explicit marks a value that differs from the declared default.
	explicit bool
}

// Resolve computes the parameters for one call of model. A nil override
// unsets the parameter. Unknown names and invalid values fail with
// [ai.KindParameterValidation].
func Resolve(model registry.ModelConfig, overrides map[string]any) (Resolved, []Diagnostic, error) {
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		if _, ok := model.Parameter(name); !ok {
			return Resolved{}, nil, ai.Errorf(ai.KindParameterValidation,
				"model %s/%s has no parameter %q", model.Provider, model.ID, name)
		}
	}

	candidates := make([]candidate, 0, len(model.Parameters))
	for _, spec := range model.Parameters {
		raw, overridden := overrides[spec.Name]
		switch {
		case overridden && raw == nil:
			continue
		case overridden:
			v, err := spec.Coerce(raw)
			if err != nil {
				return Resolved{}, nil, ai.NewError(ai.KindParameterValidation,
					fmt.Sprintf("model %s/%s", model.Provider, model.ID), err)
			}
			candidates = append(candidates, candidate{spec: spec, value: v, explicit: v != spec.Default})
		case spec.Default != nil:
			candidates = append(candidates, candidate{spec: spec, value: spec.Default})
		}
	}

	kept := make(map[string]bool, len(candidates))
	var diags []Diagnostic

	for _, c := range candidates {
		if !c.explicit {
			continue
		}
		if other, conflict := conflicting(c, candidates, kept); conflict {
			diags = append(diags, Diagnostic{Parameter: c.spec.Name, Value: c.value, ConflictsWith: other})
			continue
		}
		kept[c.spec.Name] = true
	}
	for _, c := range candidates {
		if c.explicit {
			continue
		}
		if _, conflict := conflicting(c, candidates, kept); conflict {
			continue
		}
		kept[c.spec.Name] = true
	}

	entries := make([]Entry, 0, len(kept))
	for _, c := range candidates {
		if kept[c.spec.Name] {
			entries = append(entries, Entry{Name: c.spec.Name, Value: c.value})
		}
	}
	return Resolved{entries: entries}, diags, nil
}

// conflicting returns the first kept parameter that is mutually exclusive
// with c. The relation is checked in both directions.
func conflicting(c candidate, all []candidate, kept map[string]bool) (string, bool) {
	for _, other := range all {
		if !kept[other.spec.Name] || other.spec.Name == c.spec.Name {
			continue
		}
		if c.spec.ExclusiveWith(other.spec.Name) || other.spec.ExclusiveWith(c.spec.Name) {
			return other.spec.Name, true
		}
	}
	return "", false
}
