package registry

import (
	"fmt"
	"slices"

	ai "github.com/spetersoncode/llmcore"
)

// normalize fills defaults and validates a provider entry in place.
func (p *ProviderConfig) normalize() error {
	if p.ID == "" {
		return ai.Errorf(ai.KindConfiguration, "provider id is empty")
	}
	if p.Driver == "" {
		p.Driver = p.ID
	}
	seen := make(map[string]bool, len(p.Models))
	for i := range p.Models {
		m := &p.Models[i]
		if m.ID == "" {
			return ai.Errorf(ai.KindConfiguration, "provider %q: model id is empty", p.ID)
		}
		if seen[m.ID] {
			return ai.Errorf(ai.KindConfiguration, "provider %q: model %q is declared twice", p.ID, m.ID)
		}
		seen[m.ID] = true
		m.Provider = p.ID
		if err := m.normalize(); err != nil {
			return ai.NewError(ai.KindConfiguration, fmt.Sprintf("provider %q: model %q", p.ID, m.ID), err)
		}
	}
	return nil
}

func (m *ModelConfig) normalize() error {
	if m.APIStyle == "" {
		m.APIStyle = APIStyleSync
	}
	if !m.APIStyle.Valid() {
		return fmt.Errorf("unknown apiStyle %q", m.APIStyle)
	}
	if m.JobAlternate && m.APIStyle != APIStyleSync {
		return fmt.Errorf("jobAlternate requires apiStyle %q", APIStyleSync)
	}

	names := make(map[string]bool, len(m.Parameters))
	for _, p := range m.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter name is empty")
		}
		if names[p.Name] {
			return fmt.Errorf("parameter %q is declared twice", p.Name)
		}
		names[p.Name] = true
	}

	for i := range m.Parameters {
		p := &m.Parameters[i]
		if !p.Type.Valid() {
			return fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return fmt.Errorf("parameter %q has min %v > max %v", p.Name, *p.Min, *p.Max)
		}
		if p.Type == ParamChoice && len(p.Choices) == 0 {
			return fmt.Errorf("choice parameter %q has no choices", p.Name)
		}
		if p.Default != nil {
			v, err := p.Coerce(p.Default)
			if err != nil {
				return fmt.Errorf("invalid default: %w", err)
			}
			p.Default = v
		}
		for _, other := range p.MutuallyExclusiveWith {
			if other == p.Name {
				return fmt.Errorf("parameter %q is exclusive with itself", p.Name)
			}
			if !names[other] {
				return fmt.Errorf("parameter %q is exclusive with undeclared parameter %q", p.Name, other)
			}
		}
	}

	toolIDs := make([]string, 0, len(m.BuiltInTools))
	for _, t := range m.BuiltInTools {
		if t.ID == "" {
			return fmt.Errorf("built-in tool id is empty")
		}
		if slices.Contains(toolIDs, t.ID) {
			return fmt.Errorf("built-in tool %q is declared twice", t.ID)
		}
		toolIDs = append(toolIDs, t.ID)
	}
	return nil
}
