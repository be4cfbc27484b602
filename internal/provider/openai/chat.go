package openai

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/request"
)

func chatParams(p *request.Payload) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    p.ModelID,
		Messages: convertMessages(p.Messages),
	}
	if p.ReasoningEnabled() {
		params.ReasoningEffort = shared.ReasoningEffort(p.ReasoningEffort)
	}
	if p.UserContext != "" {
		params.User = openai.String(p.UserContext)
	}
	return params
}

func chatOptions(p *request.Payload) []option.RequestOption {
	return append(paramOptions(p, nil), toolsOption(p.Tools, chatTool)...)
}

func convertMessages(messages []ai.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case ai.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

// Complete sends a conversation and returns the flat message.
func (c *Client) Complete(ctx context.Context, p *request.Payload) (*normalize.Raw, error) {
	resp, err := c.client.Chat.Completions.New(ctx, chatParams(p), chatOptions(p)...)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.Errorf(ai.KindProviderRejected, "openai: completion has no choices")
	}

	msg := resp.Choices[0].Message
	return normalize.Flat(normalize.FlatMessage{
		Content:       msg.Content,
		ReasoningText: reasoningContent(msg.RawJSON()),
		ToolCalls:     extractToolCalls(msg.ToolCalls),
	}, convertUsage(resp.Usage)), nil
}

// Stream sends a conversation and yields content deltas. The last delta
// carries the usage.
func (c *Client) Stream(ctx context.Context, p *request.Payload) iter.Seq2[backend.Delta, error] {
	return func(yield func(backend.Delta, error) bool) {
		params := chatParams(p)
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		}
		stream := c.client.Chat.Completions.NewStreaming(ctx, params, chatOptions(p)...)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !yield(backend.Delta{Text: chunk.Choices[0].Delta.Content}, nil) {
					return
				}
			}
			if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
				usage := convertUsage(chunk.Usage)
				if !yield(backend.Delta{Usage: &usage}, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield(backend.Delta{}, wrapError(err))
		}
	}
}

// reasoningContent reads the reasoning_content extension that
// OpenAI-compatible reasoning servers add to the message.
func reasoningContent(raw string) string {
	if raw == "" {
		return ""
	}
	var ext struct {
		ReasoningContent string `json:"reasoning_content"`
	}
	if err := json.Unmarshal([]byte(raw), &ext); err != nil {
		return ""
	}
	return ext.ReasoningContent
}

func extractToolCalls(toolCalls []openai.ChatCompletionMessageToolCall) []ai.ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}
	result := make([]ai.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		result[i] = ai.ToolCall{
			ID:        tc.ID,
			Type:      "function",
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return result
}

func convertUsage(u openai.CompletionUsage) ai.Usage {
	return ai.Usage{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
	}
}
