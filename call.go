package llmcore

import "encoding/json"

// CallRequest is a provider-agnostic chat request.
type CallRequest struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	// ParameterOverrides replace the model's parameter defaults.
	// A nil value unsets the parameter.
	ParameterOverrides map[string]any `json:"parameterOverrides,omitempty"`
	Tools              []Tool         `json:"tools,omitempty"`
	// UserContext is an opaque identifier used for usage attribution.
	UserContext string `json:"userContext,omitempty"`
}

// CallResult is the uniform result of a call, whatever the upstream shape.
type CallResult struct {
	CallID   string    `json:"callId"`
	Content  string    `json:"content"`
	Thoughts *Thoughts `json:"thoughts,omitempty"`
	Usage    Usage     `json:"usage"`
}

// Thoughts is the reasoning and tool-call payload extracted from a response.
type Thoughts struct {
	ReasoningText    string            `json:"reasoningText,omitempty"`
	ToolCalls        []ToolCall        `json:"toolCalls,omitempty"`
	RawThoughtBlocks []json.RawMessage `json:"rawThoughtBlocks,omitempty"`
}

// Empty returns true if no field carries data.
func (t *Thoughts) Empty() bool {
	return t == nil || (t.ReasoningText == "" && len(t.ToolCalls) == 0 && len(t.RawThoughtBlocks) == 0)
}

// Usage contains token counts and the estimated cost of a call.
type Usage struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	CostEstimate     float64 `json:"costEstimate"`
}

// JobStatus is the lifecycle state of an async job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal returns true if the job will not change status again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCancelled:
		return true
	}
	return false
}

// Job is the handle of a submitted async job.
type Job struct {
	ID     string      `json:"id"`
	Status JobStatus   `json:"status"`
	Result *CallResult `json:"result,omitempty"`
}
