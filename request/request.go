// Package request assembles provider call payloads from a validated call
// request, its model config and the resolved parameters.
package request

import (
	"encoding/json"
	"slices"
	"strings"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/param"
	"github.com/spetersoncode/llmcore/registry"
)

const (
	// ReasoningEffortParam is lifted out of the generic parameters and sent
	// through each provider's native reasoning control.
	ReasoningEffortParam = "reasoning_effort"
	// ReasoningDisabled turns reasoning off.
	ReasoningDisabled = "disable"
)

// Tool is either a caller function or a resolved built-in tool.
type Tool struct {
	Function *ai.Tool
	BuiltIn  *registry.ToolDescriptor
}

// Payload is the provider-independent form of one upstream call.
type Payload struct {
	// Model is the composite "provider/model" id.
	Model    string
	Provider string
	ModelID  string
	Messages []ai.Message
	Params   param.Resolved
	Tools    []Tool
	// ReasoningEffort is empty when reasoning is off.
	ReasoningEffort string
	UserContext     string
}

// HasTools returns true if any tool is attached.
func (p *Payload) HasTools() bool {
	return len(p.Tools) > 0
}

// ReasoningEnabled returns true if a reasoning effort was requested.
func (p *Payload) ReasoningEnabled() bool {
	return p.ReasoningEffort != ""
}

// Build assembles the payload. Messages are copied so later mutation of the
// request does not leak into the call.
func Build(model registry.ModelConfig, req *ai.CallRequest, resolved param.Resolved, tools []Tool) *Payload {
	p := &Payload{
		Model:       model.Provider + "/" + model.ID,
		Provider:    model.Provider,
		ModelID:     model.ID,
		Messages:    slices.Clone(req.Messages),
		Params:      resolved.Without(ReasoningEffortParam),
		UserContext: req.UserContext,
	}
	if effort, ok := resolved.Get(ReasoningEffortParam); ok {
		if s, _ := effort.(string); s != "" && s != ReasoningDisabled {
			p.ReasoningEffort = s
		}
	}
	if len(tools) > 0 {
		p.Tools = slices.Clone(tools)
	}
	return p
}

// ValidateMessages checks that there is at least one message and every role
// is supported.
func ValidateMessages(msgs []ai.Message) error {
	if len(msgs) == 0 {
		return ai.Errorf(ai.KindParameterValidation, "messages must not be empty")
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return ai.Errorf(ai.KindParameterValidation, "message %d has unsupported role %q", i, m.Role)
		}
	}
	return nil
}

// ResolveTools maps the requested tools onto the model. Built-in tools must
// be declared for the model; function tools need a name and, if given, a
// JSON parameter schema.
func ResolveTools(model registry.ModelConfig, tools []ai.Tool) ([]Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if t.IsBuiltIn() {
			desc, ok := model.BuiltInTool(t.BuiltIn)
			if !ok {
				return nil, ai.Errorf(ai.KindParameterValidation,
					"model %s/%s has no built-in tool %q", model.Provider, model.ID, t.BuiltIn)
			}
			out = append(out, Tool{BuiltIn: &desc})
			continue
		}
		if t.Name == "" {
			return nil, ai.Errorf(ai.KindParameterValidation, "function tool has no name")
		}
		if len(t.Parameters) > 0 && !json.Valid(t.Parameters) {
			return nil, ai.Errorf(ai.KindParameterValidation, "tool %q has an invalid parameter schema", t.Name)
		}
		fn := t
		out = append(out, Tool{Function: &fn})
	}
	return out, nil
}

// JobPayload is the submit-and-poll form of a payload: system messages
// become instructions and the final user message becomes the input.
type JobPayload struct {
	*Payload
	Instructions string
	Input        string
}

// BuildJob derives the job form of p. It reports false when p has no user
// message, in which case the call must take the sync path.
func BuildJob(p *Payload) (*JobPayload, bool) {
	var system []string
	input, found := "", false
	for _, m := range p.Messages {
		switch m.Role {
		case ai.RoleSystem:
			system = append(system, m.Content)
		case ai.RoleUser:
			input, found = m.Content, true
		}
	}
	if !found {
		return nil, false
	}
	return &JobPayload{
		Payload:      p,
		Instructions: strings.Join(system, "\n\n"),
		Input:        input,
	}, true
}
