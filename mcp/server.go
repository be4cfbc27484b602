package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/registry"
)

// Caller executes calls against a provider catalog. *client.Client
// implements it.
type Caller interface {
	Call(ctx context.Context, req *ai.CallRequest) (*ai.CallResult, error)
	Registry() *registry.Registry
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

// Tool names.
const (
	ToolChat       = "chat"
	ToolListModels = "list_models"
)

// NewServer creates an MCP server exposing two tools:
//
//   - chat: runs one call and returns the normalized result
//   - list_models: describes the catalog's models and their parameters
//
// Example:
//
//	c := client.New(client.Config{Registry: registry.Default()})
//	mcpServer := mcp.NewServer(c, mcp.WithName("llmcore"))
//	server.ServeStdio(mcpServer)
func NewServer(c Caller, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "llmcore",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
	)
	s.AddTool(chatTool(), chatHandler(c))
	s.AddTool(listModelsTool(), listModelsHandler(c.Registry()))
	return s
}

// ServeStdio starts an MCP server that communicates over stdin/stdout.
// This is the standard transport for MCP servers invoked as subprocesses.
func ServeStdio(c Caller, opts ...ServerOption) error {
	return server.ServeStdio(NewServer(c, opts...))
}

func chatTool() mcp.Tool {
	return mcp.NewTool(ToolChat,
		mcp.WithDescription("Send a conversation to a language model and return its reply, reasoning and token usage."),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id, for example openai or anthropic")),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model id within the provider")),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("User message")),
		mcp.WithString("system", mcp.Description("Optional system message")),
		mcp.WithObject("parameters", mcp.Description("Parameter overrides, for example {\"temperature\": 0.2}")),
		mcp.WithArray("builtInTools", mcp.Description("Built-in tool ids to enable, for example web_search"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("user", mcp.Description("Opaque user id for usage attribution")),
	)
}

type chatArgs struct {
	Provider     string         `json:"provider"`
	Model        string         `json:"model"`
	Prompt       string         `json:"prompt"`
	System       string         `json:"system"`
	Parameters   map[string]any `json:"parameters"`
	BuiltInTools []string       `json:"builtInTools"`
	User         string         `json:"user"`
}

func (a chatArgs) request() *ai.CallRequest {
	var messages []ai.Message
	if a.System != "" {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: a.System})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: a.Prompt})

	var tools []ai.Tool
	for _, id := range a.BuiltInTools {
		tools = append(tools, ai.Tool{BuiltIn: id})
	}
	return &ai.CallRequest{
		Provider:           a.Provider,
		Model:              a.Model,
		Messages:           messages,
		ParameterOverrides: a.Parameters,
		Tools:              tools,
		UserContext:        a.User,
	}
}

func chatHandler(c Caller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args chatArgs
		if err := req.BindArguments(&args); err != nil {
			return mcp.NewToolResultErrorf("invalid arguments: %v", err), nil
		}
		if args.Provider == "" || args.Model == "" || args.Prompt == "" {
			return mcp.NewToolResultError("provider, model and prompt are required"), nil
		}

		res, err := c.Call(ctx, args.request())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultStructured(res, res.Content), nil
	}
}

func listModelsTool() mcp.Tool {
	return mcp.NewTool(ToolListModels,
		mcp.WithDescription("List the available models with their parameters and built-in tools."),
		mcp.WithString("provider", mcp.Description("Only list models of this provider")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// ModelInfo describes one catalog model.
type ModelInfo struct {
	Provider        string          `json:"provider"`
	Model           string          `json:"model"`
	APIStyle        string          `json:"apiStyle"`
	ReturnsThoughts bool            `json:"returnsThoughts"`
	Pricing         *ai.Pricing     `json:"pricing,omitempty"`
	Parameters      []ParameterInfo `json:"parameters,omitempty"`
	BuiltInTools    []string        `json:"builtInTools,omitempty"`
}

// ParameterInfo describes one model parameter.
type ParameterInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Default     any      `json:"default,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ListModels describes the models of one provider, or of every provider
// when providerID is empty.
func ListModels(reg *registry.Registry, providerID string) ([]ModelInfo, error) {
	providers := reg.Providers()
	if providerID != "" {
		if _, err := reg.LookupProvider(providerID); err != nil {
			return nil, err
		}
		providers = []string{providerID}
	}

	var out []ModelInfo
	for _, pid := range providers {
		ids, err := reg.Models(pid)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			m, err := reg.LookupModel(pid, id)
			if err != nil {
				return nil, err
			}
			out = append(out, describe(m))
		}
	}
	return out, nil
}

func describe(m registry.ModelConfig) ModelInfo {
	info := ModelInfo{
		Provider:        m.Provider,
		Model:           m.ID,
		APIStyle:        string(m.APIStyle),
		ReturnsThoughts: m.ReturnsThoughts,
	}
	if m.Pricing.Known() {
		p := m.Pricing
		info.Pricing = &p
	}
	for _, p := range m.Parameters {
		info.Parameters = append(info.Parameters, ParameterInfo{
			Name:        p.Name,
			Type:        string(p.Type),
			Default:     p.Default,
			Min:         p.Min,
			Max:         p.Max,
			Choices:     p.Choices,
			Description: p.Description,
		})
	}
	for _, t := range m.BuiltInTools {
		info.BuiltInTools = append(info.BuiltInTools, t.ID)
	}
	return info
}

func listModelsHandler(reg *registry.Registry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		models, err := ListModels(reg, req.GetString("provider", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := mcp.NewToolResultJSON(map[string]any{"models": models})
		if err != nil {
			return nil, fmt.Errorf("encode models: %w", err)
		}
		return res, nil
	}
}
