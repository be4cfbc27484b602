// Package google adapts the Gemini API, through the Google GenAI SDK, to
// the dispatcher backends.
//
// Candidate parts become blocks: thought parts are reasoning, function
// calls are tool uses and the rest is text.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"google.golang.org/genai"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/request"
)

// Client wraps the Google GenAI SDK.
type Client struct {
	client *genai.Client
	vertex bool
}

// ClientOption configures the Google client.
type ClientOption func(*genai.ClientConfig)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// New creates a new Google GenAI client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

// NewVertex creates a client for Gemini models on Vertex AI. It uses
// Application Default Credentials instead of an API key.
func NewVertex(ctx context.Context, project, location string, opts ...ClientOption) (*Client, error) {
	cfg := &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  project,
		Location: location,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, vertex: true}, nil
}

// Complete sends a conversation and returns the candidate parts as blocks.
func (c *Client) Complete(ctx context.Context, p *request.Payload) (*normalize.Raw, error) {
	contents, config, err := c.buildRequest(p)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Models.GenerateContent(ctx, p.ModelID, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}
	if err := blocked(resp); err != nil {
		return nil, err
	}

	var parts []*genai.Part
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		parts = resp.Candidates[0].Content.Parts
	}
	return normalize.Blocks(convertParts(parts), convertUsage(resp.UsageMetadata)), nil
}

// Stream sends a conversation and yields text deltas. Thought parts are
// not streamed. The last delta carries the usage.
func (c *Client) Stream(ctx context.Context, p *request.Payload) iter.Seq2[backend.Delta, error] {
	return func(yield func(backend.Delta, error) bool) {
		contents, config, err := c.buildRequest(p)
		if err != nil {
			yield(backend.Delta{}, err)
			return
		}

		var usage ai.Usage
		for resp, err := range c.client.Models.GenerateContentStream(ctx, p.ModelID, contents, config) {
			if err != nil {
				yield(backend.Delta{}, wrapError(err))
				return
			}
			if err := blocked(resp); err != nil {
				yield(backend.Delta{}, err)
				return
			}
			if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
				for _, part := range resp.Candidates[0].Content.Parts {
					if part.Text == "" || part.Thought {
						continue
					}
					if !yield(backend.Delta{Text: part.Text}, nil) {
						return
					}
				}
			}
			if resp.UsageMetadata != nil {
				usage = convertUsage(resp.UsageMetadata)
			}
		}
		yield(backend.Delta{Usage: &usage}, nil)
	}
}

// blocked reports a prompt rejected by content filtering.
func blocked(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return ai.Errorf(ai.KindProviderRejected, "google: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	return nil
}

func convertParts(parts []*genai.Part) []normalize.Block {
	blocks := make([]normalize.Block, 0, len(parts))
	for i, part := range parts {
		switch {
		case part.FunctionCall != nil:
			args, _ := json.Marshal(part.FunctionCall.Args)
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, part.FunctionCall.Name)
			}
			blocks = append(blocks, normalize.Block{
				Type: normalize.BlockToolUse,
				ToolCall: &ai.ToolCall{
					ID:        id,
					Type:      "function_call",
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})
		case part.Thought:
			raw, _ := json.Marshal(part)
			blocks = append(blocks, normalize.Block{Type: normalize.BlockThought, Text: part.Text, Raw: raw})
		case part.Text != "":
			blocks = append(blocks, normalize.Block{Type: normalize.BlockText, Text: part.Text})
		case part.ExecutableCode != nil:
			blocks = append(blocks, normalize.Block{Type: "executable_code"})
		case part.CodeExecutionResult != nil:
			blocks = append(blocks, normalize.Block{Type: "code_execution_result"})
		}
	}
	return blocks
}

// convertUsage counts thinking tokens as completion tokens; both are
// billed as output.
func convertUsage(u *genai.GenerateContentResponseUsageMetadata) ai.Usage {
	if u == nil {
		return ai.Usage{}
	}
	return ai.Usage{
		PromptTokens:     int(u.PromptTokenCount),
		CompletionTokens: int(u.CandidatesTokenCount + u.ThoughtsTokenCount),
	}
}

var (
	_ backend.Completer = (*Client)(nil)
	_ backend.Streamer  = (*Client)(nil)
)
