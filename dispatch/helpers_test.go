package dispatch

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/registry"
	"github.com/spetersoncode/llmcore/request"
	"github.com/spetersoncode/llmcore/retry"
)

func ptr(f float64) *float64 { return &f }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.ProviderConfig{
		ID: "acme",
		Models: []registry.ModelConfig{
			{
				ID:              "fast",
				ReturnsThoughts: true,
				Pricing:         ai.Pricing{InputPerMillion: 1, OutputPerMillion: 2},
				Parameters: []registry.ParameterSpec{
					{Name: "temperature", Type: registry.ParamFloat, Default: 0.7, Min: ptr(0), Max: ptr(2), MutuallyExclusiveWith: []string{"top_p"}},
					{Name: "top_p", Type: registry.ParamFloat, Min: ptr(0), Max: ptr(1)},
				},
				BuiltInTools: []registry.ToolDescriptor{{ID: "web_search", ToolConfig: map[string]any{"type": "web_search"}}},
			},
			{
				ID:           "hybrid",
				JobAlternate: true,
				Parameters: []registry.ParameterSpec{
					{Name: "reasoning_effort", Type: registry.ParamChoice, Default: "disable", Choices: []string{"disable", "low", "high"}},
				},
				BuiltInTools: []registry.ToolDescriptor{{ID: "web_search", ToolConfig: map[string]any{"type": "web_search"}}},
			},
			{ID: "deep", APIStyle: registry.APIStyleAsyncJob},
		},
	})
	require.NoError(t, err)
	return reg
}

func userMessages(text string) []ai.Message {
	return []ai.Message{{Role: ai.RoleUser, Content: text}}
}

// fakeBackend implements every backend capability with scripted answers.
type fakeBackend struct {
	mu sync.Mutex

	completeErrs []error
	completeRaw  *normalize.Raw
	payloads     []*request.Payload

	submitErr error
	polls     []*backend.JobSnapshot
	pollErrs  []error
	jobs      []*request.JobPayload

	chunks    []string
	streamErr error
	connErrs  []error
	released  chan struct{}

	completeCalls atomic.Int32
	submitCalls   atomic.Int32
	pollCalls     atomic.Int32
	cancelCalls   atomic.Int32
	streamCalls   atomic.Int32
}

func (f *fakeBackend) Complete(_ context.Context, p *request.Payload) (*normalize.Raw, error) {
	n := int(f.completeCalls.Add(1))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	if n <= len(f.completeErrs) && f.completeErrs[n-1] != nil {
		return nil, f.completeErrs[n-1]
	}
	if f.completeRaw != nil {
		return f.completeRaw, nil
	}
	return normalize.Flat(normalize.FlatMessage{Content: "sync answer"}, ai.Usage{PromptTokens: 10, CompletionTokens: 5}), nil
}

func (f *fakeBackend) Submit(_ context.Context, p *request.JobPayload) (string, error) {
	f.submitCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, p)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeBackend) Poll(_ context.Context, id string) (*backend.JobSnapshot, error) {
	n := int(f.pollCalls.Add(1))
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= len(f.pollErrs) && f.pollErrs[n-1] != nil {
		return nil, f.pollErrs[n-1]
	}
	if len(f.polls) == 0 {
		return &backend.JobSnapshot{ID: id, Status: ai.JobRunning}, nil
	}
	i := min(n, len(f.polls)) - 1
	return f.polls[i], nil
}

func (f *fakeBackend) CancelJob(context.Context, string) error {
	f.cancelCalls.Add(1)
	return nil
}

func (f *fakeBackend) Stream(ctx context.Context, _ *request.Payload) iter.Seq2[backend.Delta, error] {
	n := int(f.streamCalls.Add(1))
	return func(yield func(backend.Delta, error) bool) {
		if f.released != nil {
			defer close(f.released)
		}
		if n <= len(f.connErrs) && f.connErrs[n-1] != nil {
			yield(backend.Delta{}, f.connErrs[n-1])
			return
		}
		for _, c := range f.chunks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !yield(backend.Delta{Text: c}, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(backend.Delta{}, f.streamErr)
			return
		}
		yield(backend.Delta{Usage: &ai.Usage{PromptTokens: 3, CompletionTokens: len(f.chunks)}}, nil)
	}
}

// completerOnly hides the optional capabilities of a fake.
type completerOnly struct{ f *fakeBackend }

func (c completerOnly) Complete(ctx context.Context, p *request.Payload) (*normalize.Raw, error) {
	return c.f.Complete(ctx, p)
}

func resolverFor(be backend.Completer) BackendResolver {
	return BackendResolverFunc(func(context.Context, registry.ProviderConfig) (backend.Completer, error) {
		return be, nil
	})
}

// recordingHook counts usage records.
type recordingHook struct {
	mu      sync.Mutex
	records []ai.UsageRecord
	err     error
	panics  bool
}

func (h *recordingHook) RecordUsage(_ context.Context, rec ai.UsageRecord) error {
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	if h.panics {
		panic("ledger exploded")
	}
	return h.err
}

func (h *recordingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// eventLog collects events synchronously.
type eventLog struct {
	mu     sync.Mutex
	events []observe.Event
}

func (l *eventLog) Emit(ev observe.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []observe.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]observe.Event(nil), l.events...)
}

func (l *eventLog) ofType(t observe.EventType) []observe.Event {
	var out []observe.Event
	for _, ev := range l.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLog) states() []string {
	var out []string
	for _, ev := range l.ofType(observe.EventStateChange) {
		out = append(out, ev.State)
	}
	return out
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func fastPolling() PollConfig {
	return PollConfig{
		Interval:             2 * time.Millisecond,
		Multiplier:           2,
		MaxInterval:          50 * time.Millisecond,
		Budget:               time.Second,
		MaxConsecutiveErrors: 3,
	}
}

type harness struct {
	d      *Dispatcher
	be     *fakeBackend
	events *eventLog
	hook   *recordingHook
}

func newHarness(t *testing.T, be *fakeBackend, opts ...Option) *harness {
	t.Helper()
	h := &harness{be: be, events: &eventLog{}, hook: &recordingHook{}}
	base := []Option{
		WithRetry(fastRetry()),
		WithPolling(fastPolling()),
		WithSink(h.events),
		WithUsageHook(h.hook),
	}
	h.d = New(testRegistry(t), resolverFor(be), append(base, opts...)...)
	return h
}

var errConnReset = ai.NewTransportError("connection reset", 0, errors.New("read: connection reset by peer"))
