package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/registry"
)

func TestCallRejectsBeforeDispatch(t *testing.T) {
	tests := []struct {
		name string
		req  *ai.CallRequest
		kind ai.Kind
	}{
		{
			name: "nil request",
			req:  nil,
			kind: ai.KindParameterValidation,
		},
		{
			name: "unknown provider",
			req:  &ai.CallRequest{Provider: "nope", Model: "fast", Messages: userMessages("hi")},
			kind: ai.KindProviderNotFound,
		},
		{
			name: "unknown model",
			req:  &ai.CallRequest{Provider: "acme", Model: "nope", Messages: userMessages("hi")},
			kind: ai.KindModelNotFound,
		},
		{
			name: "no messages",
			req:  &ai.CallRequest{Provider: "acme", Model: "fast"},
			kind: ai.KindParameterValidation,
		},
		{
			name: "out of range parameter",
			req:  &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi"), ParameterOverrides: map[string]any{"temperature": 5.0}},
			kind: ai.KindParameterValidation,
		},
		{
			name: "unknown parameter",
			req:  &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi"), ParameterOverrides: map[string]any{"seed": 1}},
			kind: ai.KindParameterValidation,
		},
		{
			name: "undeclared built-in tool",
			req:  &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi"), Tools: []ai.Tool{{BuiltIn: "code_interpreter"}}},
			kind: ai.KindParameterValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeBackend{})

			res, err := h.d.Call(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, ai.KindOf(err))

			assert.Zero(t, h.be.completeCalls.Load())
			assert.Zero(t, h.be.submitCalls.Load())
			assert.Zero(t, h.hook.count())
			assert.Empty(t, h.events.all())
		})
	}
}

func TestCallSync(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	res, err := h.d.Call(context.Background(), &ai.CallRequest{
		Provider:    "acme",
		Model:       "fast",
		Messages:    userMessages("hi"),
		UserContext: "user-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "sync answer", res.Content)
	assert.NotEmpty(t, res.CallID)
	assert.Equal(t, 10, res.Usage.PromptTokens)
	assert.Equal(t, 5, res.Usage.CompletionTokens)
	assert.InDelta(t, 0.00002, res.Usage.CostEstimate, 1e-12)

	require.Len(t, h.be.payloads, 1)
	p := h.be.payloads[0]
	assert.Equal(t, "acme/fast", p.Model)
	temp, ok := p.Params.Get("temperature")
	require.True(t, ok)
	assert.Equal(t, 0.7, temp)

	require.Equal(t, 1, h.hook.count())
	rec := h.hook.records[0]
	assert.Equal(t, res.CallID, rec.CallID)
	assert.Equal(t, "user-42", rec.UserContext)
	assert.NoError(t, rec.Err)

	assert.Equal(t, []string{"dispatched", "succeeded"}, h.events.states())
	require.Len(t, h.events.ofType(observe.EventCallStart), 1)
	assert.Equal(t, "sync", h.events.ofType(observe.EventCallStart)[0].Message)
	require.Len(t, h.events.ofType(observe.EventCallComplete), 1)
	for _, ev := range h.events.all() {
		assert.Equal(t, res.CallID, ev.CallID)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestCallRetriesTransportFailures(t *testing.T) {
	h := newHarness(t, &fakeBackend{completeErrs: []error{errConnReset, errConnReset}})

	res, err := h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
	require.NoError(t, err)
	assert.Equal(t, "sync answer", res.Content)

	assert.Equal(t, int32(3), h.be.completeCalls.Load())
	retries := h.events.ofType(observe.EventRetry)
	require.Len(t, retries, 2)
	assert.Equal(t, 1, retries[0].Attempt)
	assert.Equal(t, 2, retries[1].Attempt)
	assert.Empty(t, h.events.ofType(observe.EventRetriesExhausted))
	assert.Equal(t, 1, h.hook.count())
}

func TestCallSurvivesPanickingSink(t *testing.T) {
	sink := observe.SinkFunc(func(observe.Event) { panic("sink exploded") })
	h := newHarness(t, &fakeBackend{}, WithSink(sink))

	var res *ai.CallResult
	var err error
	require.NotPanics(t, func() {
		res, err = h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
	})
	require.NoError(t, err)
	assert.Equal(t, "sync answer", res.Content)
	assert.Equal(t, 1, h.hook.count())
}

func TestCallFailures(t *testing.T) {
	t.Run("rejected errors are not retried", func(t *testing.T) {
		h := newHarness(t, &fakeBackend{completeErrs: []error{ai.NewRejectedError("bad request", 400, nil)}})

		_, err := h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
		assert.Equal(t, ai.KindProviderRejected, ai.KindOf(err))
		assert.Equal(t, int32(1), h.be.completeCalls.Load())
		assert.Empty(t, h.events.ofType(observe.EventRetry))
		assert.Empty(t, h.events.ofType(observe.EventRetriesExhausted))
		assert.Equal(t, []string{"dispatched", "failed"}, h.events.states())

		require.Equal(t, 1, h.hook.count())
		assert.Equal(t, err, h.hook.records[0].Err)
	})

	t.Run("exhausted retries report a transport error", func(t *testing.T) {
		h := newHarness(t, &fakeBackend{completeErrs: []error{errConnReset, errConnReset, errConnReset}})

		_, err := h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
		assert.Equal(t, ai.KindProviderTransportError, ai.KindOf(err))
		assert.Equal(t, int32(3), h.be.completeCalls.Load())
		assert.Len(t, h.events.ofType(observe.EventRetry), 2)
		exhausted := h.events.ofType(observe.EventRetriesExhausted)
		require.Len(t, exhausted, 1)
		assert.Equal(t, 3, exhausted[0].Attempt)
		assert.Len(t, h.events.ofType(observe.EventCallError), 1)
	})

	t.Run("unclassified errors become rejections", func(t *testing.T) {
		h := newHarness(t, &fakeBackend{completeErrs: []error{errors.New("invalid model parameters")}})

		_, err := h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
		assert.Equal(t, ai.KindProviderRejected, ai.KindOf(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		h := newHarness(t, &fakeBackend{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h.d.Call(ctx, &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
		assert.Equal(t, ai.KindCancelled, ai.KindOf(err))
		assert.Zero(t, h.be.completeCalls.Load())
		assert.Equal(t, []string{"dispatched", "cancelled"}, h.events.states())
		assert.Equal(t, 1, h.hook.count())
	})
}

func TestCallUsageHookFailures(t *testing.T) {
	t.Run("panic does not affect the result", func(t *testing.T) {
		h := newHarness(t, &fakeBackend{})
		h.hook.panics = true

		res, err := h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
		require.NoError(t, err)
		assert.Equal(t, "sync answer", res.Content)
		assert.Equal(t, 1, h.hook.count())
		assert.Len(t, h.events.ofType(observe.EventUsageHookFailed), 1)
	})

	t.Run("error does not affect the result", func(t *testing.T) {
		h := newHarness(t, &fakeBackend{})
		h.hook.err = errors.New("ledger down")

		_, err := h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
		require.NoError(t, err)
		require.Len(t, h.events.ofType(observe.EventUsageHookFailed), 1)
		assert.EqualError(t, h.events.ofType(observe.EventUsageHookFailed)[0].Error, "ledger down")
	})
}

func TestCallReportsDroppedParameters(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	_, err := h.d.Call(context.Background(), &ai.CallRequest{
		Provider:           "acme",
		Model:              "fast",
		Messages:           userMessages("hi"),
		ParameterOverrides: map[string]any{"temperature": 0.9, "top_p": 0.5},
	})
	require.NoError(t, err)

	p := h.be.payloads[0]
	assert.Equal(t, map[string]any{"temperature": 0.9}, p.Params.Map())

	dropped := h.events.ofType(observe.EventParameterDropped)
	require.Len(t, dropped, 1)
	assert.Equal(t, "top_p", dropped[0].Parameter)
}

func TestCallNormalizesBlocks(t *testing.T) {
	raw := normalize.Blocks([]normalize.Block{
		{Type: normalize.BlockThought, Text: "thinking"},
		{Type: normalize.BlockText, Text: "Hello, "},
		{Type: "citation"},
		{Type: normalize.BlockText, Text: "world!"},
	}, ai.Usage{PromptTokens: 4, CompletionTokens: 2, CostEstimate: 0.5})
	h := newHarness(t, &fakeBackend{completeRaw: raw})

	res, err := h.d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: userMessages("hi")})
	require.NoError(t, err)

	assert.Equal(t, "Hello, world!", res.Content)
	require.NotNil(t, res.Thoughts)
	assert.Equal(t, "thinking", res.Thoughts.ReasoningText)
	assert.Equal(t, 0.5, res.Usage.CostEstimate, "provider-reported cost wins")

	unknown := h.events.ofType(observe.EventUnknownBlock)
	require.Len(t, unknown, 1)
	assert.Equal(t, "citation", unknown[0].Message)
}

func TestCallBackendResolution(t *testing.T) {
	msgs := userMessages("hi")

	t.Run("resolver error", func(t *testing.T) {
		hook := &recordingHook{}
		d := New(testRegistry(t), BackendResolverFunc(func(context.Context, registry.ProviderConfig) (backend.Completer, error) {
			return nil, ai.Errorf(ai.KindConfiguration, "ACME_API_KEY is not set")
		}), WithUsageHook(hook))

		_, err := d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: msgs})
		assert.Equal(t, ai.KindConfiguration, ai.KindOf(err))
		assert.Zero(t, hook.count())
	})

	t.Run("no resolver", func(t *testing.T) {
		d := New(testRegistry(t), nil)
		_, err := d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "fast", Messages: msgs})
		assert.Equal(t, ai.KindConfiguration, ai.KindOf(err))
	})

	t.Run("async model needs a job runner", func(t *testing.T) {
		be := &fakeBackend{}
		d := New(testRegistry(t), resolverFor(completerOnly{be}))
		_, err := d.Call(context.Background(), &ai.CallRequest{Provider: "acme", Model: "deep", Messages: msgs})
		assert.Equal(t, ai.KindConfiguration, ai.KindOf(err))
		assert.Zero(t, be.completeCalls.Load())
	})
}

func TestNewUsesDefaultRegistry(t *testing.T) {
	d := New(nil, nil)
	assert.Same(t, registry.Default(), d.Registry())
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	assert.Equal(t, ai.KindCancelled, ai.KindOf(classify(cancelled, errors.New("boom"))))
	assert.Equal(t, ai.KindProviderTimeout, ai.KindOf(classify(ctx, context.DeadlineExceeded)))
	assert.Equal(t, ai.KindJobFailed, ai.KindOf(classify(cancelled, ai.Errorf(ai.KindJobFailed, "x"))))
	assert.Equal(t, ai.KindProviderTransportError, ai.KindOf(classify(ctx, &statusErr{code: 503})))
	assert.Equal(t, ai.KindProviderRejected, ai.KindOf(classify(ctx, errors.New("nope"))))
}

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return "status error" }
func (e *statusErr) StatusCode() int { return e.code }
