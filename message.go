package llmcore

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Tool is a tool offered to the model for one call.
//
// A tool is either a function the caller implements (Name, Description and
// Parameters set) or a reference to one of the model's built-in tools
// (BuiltIn set to the tool id, for example "web_search").
type Tool struct {
	// BuiltIn names a provider-native tool declared for the model.
	BuiltIn string `json:"builtIn,omitempty"`
	// Name is the function name.
	Name string `json:"name,omitempty"`
	// Description tells the model when to call the function.
	Description string `json:"description,omitempty"`
	// Parameters is the JSON Schema of the function arguments.
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// IsBuiltIn returns true if the tool references a provider-native tool.
func (t Tool) IsBuiltIn() bool {
	return t.BuiltIn != ""
}

// ToolCall is a tool invocation the model asked for.
type ToolCall struct {
	ID string `json:"id,omitempty"`
	// Type is the provider's name for the call kind, for example
	// "function", "tool_use" or "web_search_call".
	Type      string `json:"type,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// GenerateCallID creates a unique call identifier.
func GenerateCallID() string {
	return "call-" + uuid.New().String()
}
