package registry

import (
	"maps"
	"slices"

	ai "github.com/spetersoncode/llmcore"
)

// APIStyle selects how a model is called upstream.
type APIStyle string

const (
	// APIStyleSync is a single request/response round trip.
	APIStyleSync APIStyle = "sync"
	// APIStyleAsyncJob submits a job and polls it until it is terminal.
	APIStyleAsyncJob APIStyle = "async_job"
)

// Valid reports whether s is a known API style.
func (s APIStyle) Valid() bool {
	return s == APIStyleSync || s == APIStyleAsyncJob
}

// ToolDescriptor is a provider-native built-in tool such as web search.
// ToolConfig is passed to the provider verbatim.
type ToolDescriptor struct {
	ID          string         `json:"id" yaml:"id"`
	Description string         `json:"description,omitempty" yaml:"description"`
	ToolConfig  map[string]any `json:"toolConfig" yaml:"toolConfig"`
}

// ModelConfig describes one model of a provider.
type ModelConfig struct {
	ID       string
	Provider string
	APIStyle APIStyle
	// JobAlternate lets a sync model take the job route when tools or an
	// enabled reasoning effort are requested.
	JobAlternate    bool
	ReturnsThoughts bool
	Pricing         ai.Pricing
	// Parameters are kept in declaration order.
	Parameters   []ParameterSpec
	BuiltInTools []ToolDescriptor
}

// Parameter returns the spec of the named parameter.
func (m ModelConfig) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return ParameterSpec{}, false
}

// BuiltInTool returns the built-in tool with the given id.
func (m ModelConfig) BuiltInTool(id string) (ToolDescriptor, bool) {
	for _, t := range m.BuiltInTools {
		if t.ID == id {
			return t.clone(), true
		}
	}
	return ToolDescriptor{}, false
}

// ProviderConfig describes an upstream provider and its models.
type ProviderConfig struct {
	ID string
	// CredentialEnvVar names the environment variable holding the API key.
	// Empty for providers that need no credentials, such as a local Ollama.
	CredentialEnvVar string
	// Driver selects the SDK used to talk to the provider: openai,
	// anthropic, google or vertex. Defaults to ID.
	Driver string
	// BaseURL overrides the SDK endpoint, for OpenAI-compatible servers.
	BaseURL string
	Models  []ModelConfig
}

// Model returns the model with the given id.
func (p ProviderConfig) Model(id string) (ModelConfig, bool) {
	for _, m := range p.Models {
		if m.ID == id {
			return m.clone(), true
		}
	}
	return ModelConfig{}, false
}

// Registry is an immutable provider catalog.
type Registry struct {
	providers map[string]ProviderConfig
	order     []string
}

// New validates the given providers and builds a registry from copies of
// them. Providers keep the order they are given in.
func New(providers ...ProviderConfig) (*Registry, error) {
	r := &Registry{providers: make(map[string]ProviderConfig, len(providers))}
	for _, p := range providers {
		p = p.clone()
		if err := p.normalize(); err != nil {
			return nil, err
		}
		if _, dup := r.providers[p.ID]; dup {
			return nil, ai.Errorf(ai.KindConfiguration, "provider %q is declared twice", p.ID)
		}
		r.providers[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r, nil
}

// LookupProvider returns the provider with the given id.
func (r *Registry) LookupProvider(id string) (ProviderConfig, error) {
	p, ok := r.providers[id]
	if !ok {
		return ProviderConfig{}, ai.Errorf(ai.KindProviderNotFound, "provider %q is not registered", id)
	}
	return p.clone(), nil
}

// LookupModel returns the model of the given provider.
func (r *Registry) LookupModel(providerID, modelID string) (ModelConfig, error) {
	p, ok := r.providers[providerID]
	if !ok {
		return ModelConfig{}, ai.Errorf(ai.KindProviderNotFound, "provider %q is not registered", providerID)
	}
	m, ok := p.Model(modelID)
	if !ok {
		return ModelConfig{}, ai.Errorf(ai.KindModelNotFound, "model %q is not registered for provider %q", modelID, providerID)
	}
	return m, nil
}

// Providers returns the provider ids in catalog order.
func (r *Registry) Providers() []string {
	return slices.Clone(r.order)
}

// Models returns the model ids of a provider in catalog order.
func (r *Registry) Models(providerID string) ([]string, error) {
	p, ok := r.providers[providerID]
	if !ok {
		return nil, ai.Errorf(ai.KindProviderNotFound, "provider %q is not registered", providerID)
	}
	ids := make([]string, len(p.Models))
	for i, m := range p.Models {
		ids[i] = m.ID
	}
	return ids, nil
}

func (p ProviderConfig) clone() ProviderConfig {
	models := make([]ModelConfig, len(p.Models))
	for i, m := range p.Models {
		models[i] = m.clone()
	}
	p.Models = models
	return p
}

func (m ModelConfig) clone() ModelConfig {
	params := make([]ParameterSpec, len(m.Parameters))
	for i, ps := range m.Parameters {
		params[i] = ps.clone()
	}
	tools := make([]ToolDescriptor, len(m.BuiltInTools))
	for i, t := range m.BuiltInTools {
		tools[i] = t.clone()
	}
	m.Parameters = params
	m.BuiltInTools = tools
	return m
}

func (t ToolDescriptor) clone() ToolDescriptor {
	if t.ToolConfig != nil {
		t.ToolConfig = deepCopyMap(t.ToolConfig)
	}
	return t
}

func deepCopyMap(m map[string]any) map[string]any {
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return deepCopyMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
