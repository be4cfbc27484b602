package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/param"
	"github.com/spetersoncode/llmcore/registry"
	"github.com/spetersoncode/llmcore/request"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), "test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func testPayload() *request.Payload {
	return &request.Payload{
		Model:    "gemini/gemini-2.5-flash",
		Provider: "gemini",
		ModelID:  "gemini-2.5-flash",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "Be brief."},
			{Role: ai.RoleUser, Content: "Hi"},
		},
		Params: param.NewResolved(
			param.Entry{Name: "temperature", Value: 0.5},
			param.Entry{Name: "max_tokens", Value: 300},
		),
	}
}

func TestComplete(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent"), r.URL.Path)
		body = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"candidates": [{
				"content": {"role": "model", "parts": [
					{"text": "Pondering a greeting.", "thought": true},
					{"text": "Hello"},
					{"functionCall": {"name": "lookup", "args": {"q": "hi"}}},
					{"text": " there!"}
				]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 8, "candidatesTokenCount": 4, "thoughtsTokenCount": 6}
		}`)
	})

	p := testPayload()
	p.ReasoningEffort = "medium"
	raw, err := c.Complete(context.Background(), p)
	require.NoError(t, err)

	config, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing: %v", body)
	assert.Equal(t, 0.5, config["temperature"])
	assert.Equal(t, float64(300), config["maxOutputTokens"])
	assert.Equal(t, map[string]any{"includeThoughts": true, "thinkingBudget": float64(2048)}, config["thinkingConfig"])
	assert.NotNil(t, body["systemInstruction"])
	assert.Len(t, body["contents"], 1)

	assert.Equal(t, ai.Usage{PromptTokens: 8, CompletionTokens: 10}, raw.Usage)
	res, ignored := normalize.Normalize(raw, true)
	assert.Empty(t, ignored)
	assert.Equal(t, "Hello there!", res.Content)
	require.NotNil(t, res.Thoughts)
	assert.Equal(t, "Pondering a greeting.", res.Thoughts.ReasoningText)
	require.Len(t, res.Thoughts.ToolCalls, 1)
	assert.Equal(t, "lookup", res.Thoughts.ToolCalls[0].Name)
	assert.JSONEq(t, `{"q":"hi"}`, res.Thoughts.ToolCalls[0].Arguments)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   ai.Kind
	}{
		{429, ai.KindProviderTransportError},
		{500, ai.KindProviderTransportError},
		{400, ai.KindProviderRejected},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error": {"code": %d, "message": "nope", "status": "ERR"}}`, tt.status)
			})

			_, err := c.Complete(context.Background(), testPayload())
			require.Error(t, err)
			assert.Equal(t, tt.kind, ai.KindOf(err))
		})
	}
}

func TestCompleteBlockedPrompt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"promptFeedback": {"blockReason": "SAFETY"}}`)
	})

	_, err := c.Complete(context.Background(), testPayload())
	assert.Equal(t, ai.KindProviderRejected, ai.KindOf(err))
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":streamGenerateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"thinking...","thought":true}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]}}]}`,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"lo"}]}}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2}}`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
	})

	var text string
	var usage *ai.Usage
	for delta, err := range c.Stream(context.Background(), testPayload()) {
		require.NoError(t, err)
		text += delta.Text
		if delta.Usage != nil {
			usage = delta.Usage
		}
	}
	assert.Equal(t, "Hello", text)
	require.NotNil(t, usage)
	assert.Equal(t, ai.Usage{PromptTokens: 3, CompletionTokens: 2}, *usage)
}

func TestConfigField(t *testing.T) {
	assert.Equal(t, "temperature", configField("temperature"))
	assert.Equal(t, "topP", configField("top_p"))
	assert.Equal(t, "presencePenalty", configField("presence_penalty"))
	assert.Equal(t, "maxOutputTokens", configField("max_tokens"))
}

func TestBuildRequest(t *testing.T) {
	p := testPayload()
	p.Params = param.NewResolved(
		param.Entry{Name: "top_k", Value: 40},
		param.Entry{Name: "unknown_knob", Value: 1.0},
	)
	p.Tools = []request.Tool{
		{Function: &ai.Tool{Name: "lookup", Parameters: json.RawMessage(`{"type":"object"}`)}},
		{Function: &ai.Tool{Name: "fetch"}},
		{BuiltIn: &registry.ToolDescriptor{ID: "google_search", ToolConfig: map[string]any{"googleSearch": map[string]any{}}}},
	}
	p.UserContext = "user-42"

	contents, config, err := (&Client{}).buildRequest(p)
	require.NoError(t, err)

	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "Be brief.", config.SystemInstruction.Parts[0].Text)

	require.NotNil(t, config.TopK)
	assert.Equal(t, float32(40), *config.TopK)
	assert.Nil(t, config.ThinkingConfig)
	assert.Nil(t, config.Labels, "labels are rejected by the Gemini API")

	_, config, err = (&Client{vertex: true}).buildRequest(p)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user": "user-42"}, config.Labels)

	require.Len(t, config.Tools, 2)
	assert.NotNil(t, config.Tools[0].GoogleSearch)
	require.Len(t, config.Tools[1].FunctionDeclarations, 2)
	assert.Equal(t, "lookup", config.Tools[1].FunctionDeclarations[0].Name)
}
