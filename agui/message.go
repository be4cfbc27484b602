package agui

import (
	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/llmcore"
)

// Role constants matching AG-UI protocol.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ToMessages converts AG-UI messages to call messages.
// Tool results and messages without text are skipped: a call carries
// plain conversation text only.
func ToMessages(msgs []events.Message) []ai.Message {
	result := make([]ai.Message, 0, len(msgs))
	for _, msg := range msgs {
		role, ok := toRole(msg.Role)
		if !ok || msg.Content == nil || *msg.Content == "" {
			continue
		}
		result = append(result, ai.Message{Role: role, Content: *msg.Content})
	}
	return result
}

// FromMessages converts call messages to AG-UI messages, for
// MESSAGES_SNAPSHOT events.
func FromMessages(msgs []ai.Message) []events.Message {
	result := make([]events.Message, 0, len(msgs))
	for _, msg := range msgs {
		content := msg.Content
		result = append(result, events.Message{
			ID:      events.GenerateMessageID(),
			Role:    string(msg.Role),
			Content: &content,
		})
	}
	return result
}

// FromResult converts a call result to an assistant message.
// Tool calls in the result's thoughts are carried as AG-UI tool calls.
func FromResult(res *ai.CallResult) events.Message {
	content := res.Content
	m := events.Message{
		ID:      events.GenerateMessageID(),
		Role:    RoleAssistant,
		Content: &content,
	}
	if res.Thoughts == nil {
		return m
	}
	for _, tc := range res.Thoughts.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, events.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: events.Function{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return m
}

func toRole(role string) (ai.Role, bool) {
	switch role {
	case RoleUser:
		return ai.RoleUser, true
	case RoleAssistant:
		return ai.RoleAssistant, true
	case RoleSystem:
		return ai.RoleSystem, true
	default:
		return "", false
	}
}
