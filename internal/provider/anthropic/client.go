package anthropic

import (
	"context"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/request"
)

// Client wraps the Anthropic SDK.
type Client struct {
	client anthropic.Client
}

// ClientOption configures the Anthropic client.
type ClientOption func(*[]option.RequestOption)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(opts *[]option.RequestOption) {
		if url != "" {
			*opts = append(*opts, option.WithBaseURL(url))
		}
	}
}

// New creates a new Anthropic client with the given API key. The SDK's own
// retries are disabled; the dispatcher owns the retry policy.
func New(apiKey string, opts ...ClientOption) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	for _, opt := range opts {
		opt(&reqOpts)
	}
	return &Client{client: anthropic.NewClient(reqOpts...)}
}

// Complete sends a conversation and returns the content blocks.
func (c *Client) Complete(ctx context.Context, p *request.Payload) (*normalize.Raw, error) {
	params, opts := buildParams(p)
	resp, err := c.client.Messages.New(ctx, params, opts...)
	if err != nil {
		return nil, wrapError(err)
	}
	return convertMessage(resp), nil
}

// Stream sends a conversation and yields text deltas. The last delta
// carries the usage.
func (c *Client) Stream(ctx context.Context, p *request.Payload) iter.Seq2[backend.Delta, error] {
	return func(yield func(backend.Delta, error) bool) {
		params, opts := buildParams(p)
		stream := c.client.Messages.NewStreaming(ctx, params, opts...)
		defer stream.Close()

		var acc anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				yield(backend.Delta{}, err)
				return
			}
			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta()
			if text := delta.Delta.AsTextDelta(); text.Type == "text_delta" && text.Text != "" {
				if !yield(backend.Delta{Text: text.Text}, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield(backend.Delta{}, wrapError(err))
			return
		}

		usage := convertUsage(acc.Usage)
		yield(backend.Delta{Usage: &usage}, nil)
	}
}

// convertMessage keeps the content blocks in order.
func convertMessage(msg *anthropic.Message) *normalize.Raw {
	blocks := make([]normalize.Block, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			blocks = append(blocks, normalize.Block{Type: normalize.BlockText, Text: block.Text})
		case "thinking", "redacted_thinking":
			blocks = append(blocks, normalize.Block{
				Type: normalize.BlockThought,
				Text: block.Thinking,
				Raw:  []byte(block.RawJSON()),
			})
		case "tool_use", "server_tool_use":
			blocks = append(blocks, normalize.Block{
				Type: normalize.BlockToolUse,
				ToolCall: &ai.ToolCall{
					ID:        block.ID,
					Type:      block.Type,
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		default:
			blocks = append(blocks, normalize.Block{Type: normalize.BlockType(block.Type), Raw: []byte(block.RawJSON())})
		}
	}
	return normalize.Blocks(blocks, convertUsage(msg.Usage))
}

func convertUsage(u anthropic.Usage) ai.Usage {
	return ai.Usage{
		PromptTokens:     int(u.InputTokens),
		CompletionTokens: int(u.OutputTokens),
	}
}

var (
	_ backend.Completer = (*Client)(nil)
	_ backend.Streamer  = (*Client)(nil)
)
