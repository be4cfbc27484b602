package google

import (
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/request"
)

// thinkingBudgets maps reasoning efforts onto thinking token budgets.
var thinkingBudgets = map[string]int32{
	"low":    1024,
	"medium": 2048,
	"high":   4096,
}

// configFields maps catalog parameter names onto generation config fields
// that do not follow the snake_case to camelCase rule.
var configFields = map[string]string{
	"max_tokens": "maxOutputTokens",
}

func (c *Client) buildRequest(p *request.Payload) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents, system := convertMessages(p.Messages)
	config, err := generationConfig(p)
	if err != nil {
		return nil, nil, err
	}
	config.SystemInstruction = system

	if budget, ok := thinkingBudgets[p.ReasoningEffort]; ok {
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(budget),
		}
	}
	if config.Tools, err = convertTools(p.Tools); err != nil {
		return nil, nil, err
	}
	// Only Vertex AI accepts request labels.
	if c.vertex && p.UserContext != "" {
		config.Labels = map[string]string{"user": p.UserContext}
	}
	return contents, config, nil
}

// generationConfig decodes the resolved parameters into the SDK config.
// Parameters the config does not know are dropped by the decoder.
func generationConfig(p *request.Payload) (*genai.GenerateContentConfig, error) {
	fields := make(map[string]any, p.Params.Len())
	for name, value := range p.Params.All() {
		fields[configField(name)] = value
	}
	config := &genai.GenerateContentConfig{}
	if len(fields) == 0 {
		return config, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, ai.NewError(ai.KindParameterValidation, "google: encode parameters", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, ai.NewError(ai.KindParameterValidation, "google: decode parameters", err)
	}
	return config, nil
}

func configField(name string) string {
	if field, ok := configFields[name]; ok {
		return field
	}
	parts := strings.Split(name, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// convertMessages moves system messages into the system instruction.
// Assistant turns use the "model" role.
func convertMessages(messages []ai.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system *genai.Content

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case ai.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, &genai.Part{Text: msg.Content})
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, system
}

// convertTools groups function tools into one declaration list. Built-in
// tools are decoded from their catalog config, for example
// {"googleSearch": {}}.
func convertTools(tools []request.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	var result []*genai.Tool
	var funcs []*genai.FunctionDeclaration
	for _, t := range tools {
		if t.BuiltIn != nil {
			data, err := json.Marshal(t.BuiltIn.ToolConfig)
			if err != nil {
				return nil, ai.NewError(ai.KindConfiguration, "google: tool "+t.BuiltIn.ID, err)
			}
			var tool genai.Tool
			if err := json.Unmarshal(data, &tool); err != nil {
				return nil, ai.NewError(ai.KindConfiguration, "google: tool "+t.BuiltIn.ID, err)
			}
			result = append(result, &tool)
			continue
		}
		decl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		if len(t.Function.Parameters) > 0 {
			decl.ParametersJsonSchema = json.RawMessage(t.Function.Parameters)
		}
		funcs = append(funcs, decl)
	}
	if len(funcs) > 0 {
		result = append(result, &genai.Tool{FunctionDeclarations: funcs})
	}
	return result, nil
}
