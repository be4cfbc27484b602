package registry

import (
	"fmt"
	"io"
	"os"

	ai "github.com/spetersoncode/llmcore"
	"gopkg.in/yaml.v3"
)

type providerDoc struct {
	CredentialEnvVar string    `yaml:"credentialEnvVar"`
	Driver           string    `yaml:"driver"`
	BaseURL          string    `yaml:"baseURL"`
	Models           yaml.Node `yaml:"models"`
}

type modelDoc struct {
	APIStyle        APIStyle         `yaml:"apiStyle"`
	JobAlternate    bool             `yaml:"jobAlternate"`
	ReturnsThoughts bool             `yaml:"returnsThoughts"`
	Pricing         ai.Pricing       `yaml:"pricing"`
	Parameters      yaml.Node        `yaml:"parameters"`
	BuiltInTools    []ToolDescriptor `yaml:"builtInTools"`
}

type parameterDoc struct {
	Type                  ParamType `yaml:"type"`
	Default               any       `yaml:"default"`
	Min                   *float64  `yaml:"min"`
	Max                   *float64  `yaml:"max"`
	Choices               []string  `yaml:"choices"`
	MutuallyExclusiveWith []string  `yaml:"mutuallyExclusiveWith"`
	Description           string    `yaml:"description"`
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ai.NewError(ai.KindConfiguration, "open catalog", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML catalog and validates it.
func Load(r io.Reader) (*Registry, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return New()
		}
		return nil, ai.NewError(ai.KindConfiguration, "parse catalog", err)
	}

	var providers []ProviderConfig
	err := eachMapping(documentBody(&root), func(id string, node *yaml.Node) error {
		var doc providerDoc
		if err := node.Decode(&doc); err != nil {
			return fmt.Errorf("provider %q: %w", id, err)
		}
		p := ProviderConfig{
			ID:               id,
			CredentialEnvVar: doc.CredentialEnvVar,
			Driver:           doc.Driver,
			BaseURL:          doc.BaseURL,
		}
		err := eachMapping(&doc.Models, func(modelID string, node *yaml.Node) error {
			m, err := decodeModel(modelID, node)
			if err != nil {
				return fmt.Errorf("provider %q: model %q: %w", id, modelID, err)
			}
			p.Models = append(p.Models, m)
			return nil
		})
		if err != nil {
			return err
		}
		providers = append(providers, p)
		return nil
	})
	if err != nil {
		return nil, ai.NewError(ai.KindConfiguration, "parse catalog", err)
	}
	return New(providers...)
}

func decodeModel(id string, node *yaml.Node) (ModelConfig, error) {
	var doc modelDoc
	if err := node.Decode(&doc); err != nil {
		return ModelConfig{}, err
	}
	m := ModelConfig{
		ID:              id,
		APIStyle:        doc.APIStyle,
		JobAlternate:    doc.JobAlternate,
		ReturnsThoughts: doc.ReturnsThoughts,
		Pricing:         doc.Pricing,
		BuiltInTools:    doc.BuiltInTools,
	}
	err := eachMapping(&doc.Parameters, func(name string, node *yaml.Node) error {
		var pd parameterDoc
		if err := node.Decode(&pd); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		m.Parameters = append(m.Parameters, ParameterSpec{
			Name:                  name,
			Type:                  pd.Type,
			Default:               pd.Default,
			Min:                   pd.Min,
			Max:                   pd.Max,
			Choices:               pd.Choices,
			MutuallyExclusiveWith: pd.MutuallyExclusiveWith,
			Description:           pd.Description,
		})
		return nil
	})
	return m, err
}

func documentBody(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	return n
}

// eachMapping walks a mapping node in source order. Zero and null nodes are
// treated as empty mappings.
func eachMapping(n *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
