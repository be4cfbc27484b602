package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// ParamType is the value type of a tunable parameter.
type ParamType string

const (
	ParamFloat   ParamType = "float"
	ParamInteger ParamType = "integer"
	ParamChoice  ParamType = "choice"
)

// Valid reports whether t is a known parameter type.
func (t ParamType) Valid() bool {
	switch t {
	case ParamFloat, ParamInteger, ParamChoice:
		return true
	}
	return false
}

// ParameterSpec is the validation and default metadata of one parameter.
type ParameterSpec struct {
	Name string
	Type ParamType
	// Default is nil when the parameter has no default and is only sent
	// when the caller sets it.
	Default any
	Min     *float64
	Max     *float64
	Choices []string
	// MutuallyExclusiveWith names parameters that must not be sent together
	// with this one. The relation is symmetric.
	MutuallyExclusiveWith []string
	Description           string
}

// ExclusiveWith reports whether this parameter declares name as mutually
// exclusive.
func (s ParameterSpec) ExclusiveWith(name string) bool {
	return slices.Contains(s.MutuallyExclusiveWith, name)
}

// Coerce converts v into the canonical Go type of the parameter and checks
// its range or choice membership. Floats become float64, integers int and
// choices string.
func (s ParameterSpec) Coerce(v any) (any, error) {
	switch s.Type {
	case ParamFloat:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects a number, got %T", s.Name, v)
		}
		if err := s.checkRange(f); err != nil {
			return nil, err
		}
		return f, nil

	case ParamInteger:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects an integer, got %T", s.Name, v)
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("parameter %q expects an integer, got %v", s.Name, v)
		}
		if err := s.checkRange(f); err != nil {
			return nil, err
		}
		return int(f), nil

	case ParamChoice:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects one of %v, got %T", s.Name, s.Choices, v)
		}
		if !slices.Contains(s.Choices, str) {
			return nil, fmt.Errorf("parameter %q expects one of %v, got %q", s.Name, s.Choices, str)
		}
		return str, nil
	}
	return nil, fmt.Errorf("parameter %q has unknown type %q", s.Name, s.Type)
}

func (s ParameterSpec) checkRange(f float64) error {
	if math.IsNaN(f) {
		return fmt.Errorf("parameter %q must be a number, got NaN", s.Name)
	}
	if s.Min != nil && f < *s.Min {
		return fmt.Errorf("parameter %q must be >= %v, got %v", s.Name, *s.Min, f)
	}
	if s.Max != nil && f > *s.Max {
		return fmt.Errorf("parameter %q must be <= %v, got %v", s.Name, *s.Max, f)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func (s ParameterSpec) clone() ParameterSpec {
	if s.Min != nil {
		v := *s.Min
		s.Min = &v
	}
	if s.Max != nil {
		v := *s.Max
		s.Max = &v
	}
	s.Choices = slices.Clone(s.Choices)
	s.MutuallyExclusiveWith = slices.Clone(s.MutuallyExclusiveWith)
	return s
}
