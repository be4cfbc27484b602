// Package openai adapts the OpenAI SDK to the dispatcher backends.
//
// Chat Completions serves sync calls and streams. The Responses API in
// background mode serves async jobs. OpenAI-compatible servers such as
// Perplexity or Ollama use the same client with another base URL.
package openai

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spetersoncode/llmcore/backend"
)

// Client wraps the OpenAI SDK.
type Client struct {
	client openai.Client
}

// ClientOption configures the OpenAI client.
type ClientOption func(*[]option.RequestOption)

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(url string) ClientOption {
	return func(opts *[]option.RequestOption) {
		if url != "" {
			*opts = append(*opts, option.WithBaseURL(url))
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc option.HTTPClient) ClientOption {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithHTTPClient(hc))
	}
}

// New creates a new OpenAI client with the given API key. The SDK's own
// retries are disabled; the dispatcher owns the retry policy.
func New(apiKey string, opts ...ClientOption) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	for _, opt := range opts {
		opt(&reqOpts)
	}
	return &Client{client: openai.NewClient(reqOpts...)}
}

var (
	_ backend.Completer   = (*Client)(nil)
	_ backend.Streamer    = (*Client)(nil)
	_ backend.JobRunner   = (*Client)(nil)
	_ backend.JobCanceler = (*Client)(nil)
)
