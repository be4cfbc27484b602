package agui

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/llmcore"
)

// RunAgentInput represents the AG-UI protocol request for running an agent.
// This mirrors the AG-UI protocol specification and is transport-agnostic.
type RunAgentInput struct {
	ThreadID       string           `json:"thread_id"`
	RunID          string           `json:"run_id"`
	Messages       []events.Message `json:"messages"`
	Tools          []any            `json:"tools,omitempty"`           // Frontend-provided tools
	Context        []any            `json:"context,omitempty"`         // Context items
	State          any              `json:"state,omitempty"`           // State
	ForwardedProps any              `json:"forwarded_props,omitempty"` // Forwarded props
}

// CallProps selects the model of a run. Frontends send them in
// forwarded_props; the handler's defaults fill the gaps.
type CallProps struct {
	Provider    string         `json:"provider,omitempty"`
	Model       string         `json:"model,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	UserContext string         `json:"user,omitempty"`
}

// PreparedInput contains validated input ready for dispatch.
type PreparedInput struct {
	ThreadID string
	RunID    string
	Request  *ai.CallRequest
}

var (
	// ErrNoMessages is returned when the input contains no usable messages.
	ErrNoMessages = errors.New("no messages provided")

	// ErrNoModel is returned when neither the input nor the defaults name a
	// provider and model.
	ErrNoModel = errors.New("no provider and model selected")
)

// Prepare validates the input and builds the call request.
func (r *RunAgentInput) Prepare(defaults CallProps) (*PreparedInput, error) {
	messages := ToMessages(r.Messages)
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	props, err := decodeProps(r.ForwardedProps)
	if err != nil {
		return nil, err
	}
	if props.Provider == "" {
		props.Provider = defaults.Provider
	}
	if props.Model == "" {
		props.Model = defaults.Model
	}
	if props.Provider == "" || props.Model == "" {
		return nil, ErrNoModel
	}
	if props.UserContext == "" {
		props.UserContext = defaults.UserContext
	}
	overrides := make(map[string]any, len(defaults.Parameters)+len(props.Parameters))
	for k, v := range defaults.Parameters {
		overrides[k] = v
	}
	for k, v := range props.Parameters {
		overrides[k] = v
	}

	tools, err := ParseTools(r.Tools)
	if err != nil {
		return nil, fmt.Errorf("invalid tools: %w", err)
	}

	return &PreparedInput{
		ThreadID: r.ThreadID,
		RunID:    r.RunID,
		Request: &ai.CallRequest{
			Provider:           props.Provider,
			Model:              props.Model,
			Messages:           messages,
			ParameterOverrides: overrides,
			Tools:              ToTools(tools),
			UserContext:        props.UserContext,
		},
	}, nil
}

func decodeProps(raw any) (CallProps, error) {
	var props CallProps
	if raw == nil {
		return props, nil
	}

	// Re-marshal and unmarshal to get proper typing
	data, err := json.Marshal(raw)
	if err != nil {
		return props, err
	}
	if err := json.Unmarshal(data, &props); err != nil {
		return props, fmt.Errorf("invalid forwarded_props: %w", err)
	}
	return props, nil
}
