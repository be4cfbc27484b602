package param

import (
	"iter"
	"slices"
)

// Entry is one resolved parameter.
type Entry struct {
	Name  string
	Value any
}

// Resolved is an ordered set of resolved parameters. Entries keep the
// declaration order of the model's parameter specs.
type Resolved struct {
	entries []Entry
}

// NewResolved builds a Resolved from entries, keeping their order.
func NewResolved(entries ...Entry) Resolved {
	return Resolved{entries: slices.Clone(entries)}
}

// Get returns the value of the named parameter.
func (r Resolved) Get(name string) (any, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// Len returns the number of parameters.
func (r Resolved) Len() int { return len(r.entries) }

// Names returns the parameter names in order.
func (r Resolved) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// All iterates the parameters in order.
func (r Resolved) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, e := range r.entries {
			if !yield(e.Name, e.Value) {
				return
			}
		}
	}
}

// Map returns the parameters as a plain map.
func (r Resolved) Map() map[string]any {
	m := make(map[string]any, len(r.entries))
	for _, e := range r.entries {
		m[e.Name] = e.Value
	}
	return m
}

// Without returns a copy with the named parameters removed.
func (r Resolved) Without(names ...string) Resolved {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if !slices.Contains(names, e.Name) {
			out = append(out, e)
		}
	}
	return Resolved{entries: out}
}
