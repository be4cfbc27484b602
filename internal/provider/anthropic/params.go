package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/request"
)

const defaultMaxTokens = 4096

// thinkingBudgets maps reasoning efforts onto thinking token budgets.
var thinkingBudgets = map[string]int64{
	"low":    1024,
	"medium": 2048,
	"high":   4096,
}

// samplingParams are rejected by the API while thinking is enabled.
var samplingParams = map[string]bool{
	"temperature": true,
	"top_p":       true,
	"top_k":       true,
}

func buildParams(p *request.Payload) (anthropic.MessageNewParams, []option.RequestOption) {
	msgs, system := convertMessages(p.Messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.ModelID),
		MaxTokens: maxTokens(p),
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if p.UserContext != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(p.UserContext)}
	}

	budget, thinking := thinkingBudgets[p.ReasoningEffort]
	if thinking {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
		if params.MaxTokens <= budget {
			params.MaxTokens = budget + defaultMaxTokens
		}
	}

	var opts []option.RequestOption
	for name, value := range p.Params.All() {
		if name == "max_tokens" || (thinking && samplingParams[name]) {
			continue
		}
		opts = append(opts, option.WithJSONSet(name, value))
	}
	if tools := convertTools(p.Tools); len(tools) > 0 {
		opts = append(opts, option.WithJSONSet("tools", tools))
	}
	return params, opts
}

func maxTokens(p *request.Payload) int64 {
	v, ok := p.Params.Get("max_tokens")
	if !ok {
		return defaultMaxTokens
	}
	if n, ok := v.(int); ok && n > 0 {
		return int64(n)
	}
	return defaultMaxTokens
}

func convertMessages(messages []ai.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var result []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, msg := range messages {
		// Skip empty messages - Anthropic API rejects empty text blocks
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case ai.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case ai.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result, system
}

// convertTools sends function tools in the Messages API shape and
// built-in tools verbatim from the catalog.
func convertTools(tools []request.Tool) []any {
	if len(tools) == 0 {
		return nil
	}
	result := make([]any, 0, len(tools))
	for _, t := range tools {
		if t.BuiltIn != nil {
			result = append(result, t.BuiltIn.ToolConfig)
			continue
		}
		schema := json.RawMessage(`{"type":"object"}`)
		if len(t.Function.Parameters) > 0 {
			schema = t.Function.Parameters
		}
		tool := map[string]any{
			"name":         t.Function.Name,
			"input_schema": schema,
		}
		if t.Function.Description != "" {
			tool["description"] = t.Function.Description
		}
		result = append(result, tool)
	}
	return result
}
