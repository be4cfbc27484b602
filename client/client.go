package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/dispatch"
	"github.com/spetersoncode/llmcore/internal/provider/anthropic"
	"github.com/spetersoncode/llmcore/internal/provider/google"
	"github.com/spetersoncode/llmcore/internal/provider/openai"
	"github.com/spetersoncode/llmcore/registry"
)

// Driver names accepted in the registry's driver field.
const (
	DriverOpenAI    = "openai"
	DriverAnthropic = "anthropic"
	DriverGoogle    = "google"
	DriverVertex    = "vertex"
)

// Environment variables read by the vertex driver.
const (
	envVertexProject  = "GOOGLE_CLOUD_PROJECT"
	envVertexLocation = "GOOGLE_CLOUD_LOCATION"
)

const defaultVertexLocation = "us-central1"

// SDK constructors that can fail; replaced in tests.
var (
	newGeminiClient = google.New
	newVertexClient = google.NewVertex
)

// sdkInitError marks a failed SDK constructor. Unlike missing credentials it
// is remembered for the provider.
type sdkInitError struct {
	err *ai.Error
}

func (e *sdkInitError) Error() string { return e.err.Error() }

func (e *sdkInitError) Unwrap() error { return e.err }

func initFailed(p registry.ProviderConfig, err error) error {
	return &sdkInitError{err: ai.NewError(ai.KindConfiguration, fmt.Sprintf("initialize %s client", p.ID), err)}
}

// Config holds configuration for creating a client.
type Config struct {
	// Registry is the provider catalog. If nil, uses registry.Default().
	Registry *registry.Registry

	// APIKeys maps provider ids to API keys. Providers without an entry
	// read the environment variable named by their credentialEnvVar.
	APIKeys map[string]string

	// Options configure the underlying dispatcher: retry, polling, sinks
	// and the usage hook.
	Options []dispatch.Option
}

// Client dispatches calls to provider backends built on first use.
// It is safe for concurrent use.
type Client struct {
	apiKeys    map[string]string
	dispatcher *dispatch.Dispatcher

	// Lazy-initialized backends keyed by provider id (protected by mutex)
	mu       sync.RWMutex
	backends map[string]backend.Completer
	initErrs map[string]error
}

// New creates a client with the given configuration.
func New(cfg Config) *Client {
	c := &Client{
		apiKeys:  make(map[string]string, len(cfg.APIKeys)),
		backends: make(map[string]backend.Completer),
		initErrs: make(map[string]error),
	}
	for id, key := range cfg.APIKeys {
		c.apiKeys[id] = key
	}
	c.dispatcher = dispatch.New(cfg.Registry, c, cfg.Options...)
	return c
}

// Registry returns the catalog the client routes with.
func (c *Client) Registry() *registry.Registry {
	return c.dispatcher.Registry()
}

// Call executes one non-streaming call.
func (c *Client) Call(ctx context.Context, req *ai.CallRequest) (*ai.CallResult, error) {
	return c.dispatcher.Call(ctx, req)
}

// Stream starts a streaming call. The caller must drain or Close the stream.
func (c *Client) Stream(ctx context.Context, req *ai.CallRequest) (*dispatch.Stream, error) {
	return c.dispatcher.Stream(ctx, req)
}

// Backend returns the backend of a provider, initializing it if needed.
// A failed initialization is remembered and returned on later calls.
func (c *Client) Backend(ctx context.Context, p registry.ProviderConfig) (backend.Completer, error) {
	c.mu.RLock()
	if be, ok := c.backends[p.ID]; ok {
		defer c.mu.RUnlock()
		return be, nil
	}
	if err, ok := c.initErrs[p.ID]; ok {
		defer c.mu.RUnlock()
		return nil, err
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if be, ok := c.backends[p.ID]; ok {
		return be, nil
	}
	if err, ok := c.initErrs[p.ID]; ok {
		return nil, err
	}

	be, err := c.build(ctx, p)
	if err != nil {
		// Missing credentials may be fixed by the caller, so only SDK
		// failures are cached.
		var initErr *sdkInitError
		if errors.As(err, &initErr) {
			c.initErrs[p.ID] = initErr.err
			return nil, initErr.err
		}
		return nil, err
	}
	c.backends[p.ID] = be
	return be, nil
}

func (c *Client) build(ctx context.Context, p registry.ProviderConfig) (backend.Completer, error) {
	switch p.Driver {
	case DriverOpenAI:
		key, err := c.apiKey(p)
		if err != nil {
			return nil, err
		}
		var opts []openai.ClientOption
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		return openai.New(key, opts...), nil
	case DriverAnthropic:
		key, err := c.apiKey(p)
		if err != nil {
			return nil, err
		}
		var opts []anthropic.ClientOption
		if p.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
		}
		return anthropic.New(key, opts...), nil
	case DriverGoogle:
		key, err := c.apiKey(p)
		if err != nil {
			return nil, err
		}
		var opts []google.ClientOption
		if p.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(p.BaseURL))
		}
		be, err := newGeminiClient(ctx, key, opts...)
		if err != nil {
			return nil, initFailed(p, err)
		}
		return be, nil
	case DriverVertex:
		project := os.Getenv(envVertexProject)
		if project == "" {
			return nil, ai.Errorf(ai.KindConfiguration, "provider %q: %s is not set", p.ID, envVertexProject)
		}
		location := os.Getenv(envVertexLocation)
		if location == "" {
			location = defaultVertexLocation
		}
		var opts []google.ClientOption
		if p.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(p.BaseURL))
		}
		be, err := newVertexClient(ctx, project, location, opts...)
		if err != nil {
			return nil, initFailed(p, err)
		}
		return be, nil
	default:
		return nil, ai.Errorf(ai.KindConfiguration, "provider %q: unsupported driver %q", p.ID, p.Driver)
	}
}

// apiKey returns the configured key of a provider. Providers that declare
// no credential variable, such as a local Ollama, get a placeholder key.
func (c *Client) apiKey(p registry.ProviderConfig) (string, error) {
	if key := c.apiKeys[p.ID]; key != "" {
		return key, nil
	}
	if p.CredentialEnvVar == "" {
		return p.ID, nil
	}
	if key := os.Getenv(p.CredentialEnvVar); key != "" {
		return key, nil
	}
	return "", ai.Errorf(ai.KindConfiguration, "no API key configured for %s (set %s)", p.ID, p.CredentialEnvVar)
}

var _ dispatch.BackendResolver = (*Client)(nil)
