package openai

import (
	"encoding/json"

	"github.com/openai/openai-go/option"

	"github.com/spetersoncode/llmcore/request"
)

// paramOptions sends every resolved parameter under its own name. rename
// maps catalog names onto the field names of one API.
func paramOptions(p *request.Payload, rename map[string]string) []option.RequestOption {
	var opts []option.RequestOption
	for name, value := range p.Params.All() {
		if field, ok := rename[name]; ok {
			name = field
		}
		opts = append(opts, option.WithJSONSet(name, value))
	}
	return opts
}

// chatTool is the Chat Completions function tool shape.
func chatTool(t request.Tool) map[string]any {
	fn := map[string]any{"name": t.Function.Name}
	if t.Function.Description != "" {
		fn["description"] = t.Function.Description
	}
	if len(t.Function.Parameters) > 0 {
		fn["parameters"] = json.RawMessage(t.Function.Parameters)
	}
	return map[string]any{"type": "function", "function": fn}
}

// responsesTool is the Responses API function tool shape.
func responsesTool(t request.Tool) map[string]any {
	tool := map[string]any{"type": "function", "name": t.Function.Name}
	if t.Function.Description != "" {
		tool["description"] = t.Function.Description
	}
	if len(t.Function.Parameters) > 0 {
		tool["parameters"] = json.RawMessage(t.Function.Parameters)
	}
	return tool
}

// toolsOption sends function tools in the shape of fn and built-in tools
// verbatim from the catalog.
func toolsOption(tools []request.Tool, fn func(request.Tool) map[string]any) []option.RequestOption {
	if len(tools) == 0 {
		return nil
	}
	list := make([]any, 0, len(tools))
	for _, t := range tools {
		if t.BuiltIn != nil {
			list = append(list, t.BuiltIn.ToolConfig)
			continue
		}
		list = append(list, fn(t))
	}
	return []option.RequestOption{option.WithJSONSet("tools", list)}
}
