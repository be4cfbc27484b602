// Package dispatch routes validated call requests to provider backends.
//
// A [Dispatcher] resolves the provider and model, resolves parameters and
// tools, then runs the call through the strategy of its route:
//
//   - sync: one request, transient failures retried with backoff
//   - async_job: submit a job, then poll it at growing intervals until it is
//     terminal or the poll budget is spent
//
// Lookup and validation failures are returned before any backend is
// touched. Every dispatched call invokes the usage hook exactly once.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/param"
	"github.com/spetersoncode/llmcore/registry"
	"github.com/spetersoncode/llmcore/request"
	"github.com/spetersoncode/llmcore/retry"
)

// BackendResolver returns the backend serving a provider.
type BackendResolver interface {
	Backend(ctx context.Context, provider registry.ProviderConfig) (backend.Completer, error)
}

// BackendResolverFunc adapts a function to BackendResolver.
type BackendResolverFunc func(ctx context.Context, provider registry.ProviderConfig) (backend.Completer, error)

// Backend calls f.
func (f BackendResolverFunc) Backend(ctx context.Context, provider registry.ProviderConfig) (backend.Completer, error) {
	return f(ctx, provider)
}

type strategy func(ctx context.Context, c *call, be backend.Completer) (*normalize.Raw, error)

// Dispatcher executes calls. It is safe for concurrent use.
type Dispatcher struct {
	registry *registry.Registry
	backends BackendResolver

	retry        retry.Config
	poll         PollConfig
	sink         observe.Sink
	hook         ai.UsageHook
	logger       *slog.Logger
	streamBuffer int
	closeTimeout time.Duration

	strategies map[registry.APIStyle]strategy
}

// New creates a dispatcher over reg. A nil registry uses registry.Default().
func New(reg *registry.Registry, backends BackendResolver, opts ...Option) *Dispatcher {
	if reg == nil {
		reg = registry.Default()
	}
	d := &Dispatcher{
		registry:     reg,
		backends:     backends,
		retry:        retry.DefaultConfig(),
		poll:         DefaultPollConfig(),
		sink:         observe.Discard,
		logger:       slog.Default(),
		streamBuffer: defaultStreamBuffer,
		closeTimeout: defaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.strategies = map[registry.APIStyle]strategy{
		registry.APIStyleSync:     d.dispatchSync,
		registry.APIStyleAsyncJob: d.dispatchJob,
	}
	return d
}

// Registry returns the catalog the dispatcher routes with.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// call is the per-invocation state.
type call struct {
	id       string
	req      *ai.CallRequest
	provider registry.ProviderConfig
	model    registry.ModelConfig
	payload  *request.Payload
	diags    []param.Diagnostic
	route    registry.APIStyle
	started  time.Time
	jobID    string
	sink     observe.Sink
	state    stateMachine
}

func (c *call) emit(ev observe.Event) {
	ev.CallID = c.id
	ev.Provider = c.provider.ID
	ev.Model = c.model.ID
	observe.Emit(c.sink, ev)
}

// routeFor picks the strategy of a call. Sync models with a job alternate
// take the job route when tools or reasoning are requested.
func routeFor(m registry.ModelConfig, p *request.Payload) registry.APIStyle {
	if m.APIStyle == registry.APIStyleSync && m.JobAlternate && (p.HasTools() || p.ReasoningEnabled()) {
		return registry.APIStyleAsyncJob
	}
	return m.APIStyle
}

// prepare runs every check that needs no network and builds the payload.
func (d *Dispatcher) prepare(req *ai.CallRequest) (*call, error) {
	if req == nil {
		return nil, ai.Errorf(ai.KindParameterValidation, "call request is nil")
	}
	provider, err := d.registry.LookupProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	model, err := d.registry.LookupModel(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}
	if err := request.ValidateMessages(req.Messages); err != nil {
		return nil, err
	}
	resolved, diags, err := param.Resolve(model, req.ParameterOverrides)
	if err != nil {
		return nil, err
	}
	tools, err := request.ResolveTools(model, req.Tools)
	if err != nil {
		return nil, err
	}
	payload := request.Build(model, req, resolved, tools)

	return &call{
		id:       ai.GenerateCallID(),
		req:      req,
		provider: provider,
		model:    model,
		payload:  payload,
		diags:    diags,
		route:    routeFor(model, payload),
		sink:     d.sink,
	}, nil
}

// start resolves the backend and moves the call to Dispatched.
func (d *Dispatcher) start(ctx context.Context, c *call) (backend.Completer, error) {
	if d.backends == nil {
		return nil, ai.Errorf(ai.KindConfiguration, "no backend resolver configured")
	}
	be, err := d.backends.Backend(ctx, c.provider)
	if err != nil {
		return nil, err
	}
	if be == nil {
		return nil, ai.Errorf(ai.KindConfiguration, "no backend for provider %q", c.provider.ID)
	}
	if _, ok := be.(backend.JobRunner); !ok && c.model.APIStyle == registry.APIStyleAsyncJob {
		return nil, ai.Errorf(ai.KindConfiguration, "provider %q backend cannot run jobs for model %q", c.provider.ID, c.model.ID)
	}

	c.started = time.Now()
	c.state.onChange = func(s State) {
		c.emit(observe.Event{Type: observe.EventStateChange, State: s.String()})
	}
	c.emit(observe.Event{Type: observe.EventCallStart, Message: string(c.route)})
	for _, diag := range c.diags {
		c.emit(observe.Event{Type: observe.EventParameterDropped, Parameter: diag.Parameter, Message: diag.String()})
	}
	c.state.transition(StateDispatched)
	return be, nil
}

// Call executes req and returns the normalized result.
func (d *Dispatcher) Call(ctx context.Context, req *ai.CallRequest) (*ai.CallResult, error) {
	c, err := d.prepare(req)
	if err != nil {
		return nil, err
	}
	be, err := d.start(ctx, c)
	if err != nil {
		return nil, err
	}

	raw, err := d.strategies[c.route](ctx, c, be)
	if err != nil {
		err = classify(ctx, err)
		d.fail(ctx, c, err, ai.Usage{})
		return nil, err
	}

	res := d.normalize(c, raw)
	c.state.transition(StateSucceeded)
	c.emit(observe.Event{Type: observe.EventCallComplete, Duration: time.Since(c.started), Usage: &res.Usage})
	d.recordUsage(ctx, c, res.Usage, nil)
	return res, nil
}

// normalize converts raw into the call result and fills the cost estimate.
func (d *Dispatcher) normalize(c *call, raw *normalize.Raw) *ai.CallResult {
	res, ignored := normalize.Normalize(raw, c.model.ReturnsThoughts)
	for _, b := range ignored {
		c.emit(observe.Event{Type: observe.EventUnknownBlock, Message: string(b.Type)})
	}
	res.CallID = c.id
	res.Usage = c.costed(res.Usage)
	return res
}

// costed fills in the cost from the model's pricing unless the provider
// reported one.
func (c *call) costed(u ai.Usage) ai.Usage {
	if u.CostEstimate == 0 && c.model.Pricing.Known() {
		u.CostEstimate = c.model.Pricing.Estimate(u.PromptTokens, u.CompletionTokens)
	}
	return u
}

// fail moves c to the terminal state matching err and reports it.
func (d *Dispatcher) fail(ctx context.Context, c *call, err error, usage ai.Usage) {
	switch ai.KindOf(err) {
	case ai.KindProviderTimeout:
		c.state.transition(StateTimedOut)
		c.emit(observe.Event{Type: observe.EventTimeout, JobID: c.jobID, Error: err})
	case ai.KindCancelled:
		c.state.transition(StateCancelled)
	case ai.KindStreamAborted:
		if errors.Is(err, context.DeadlineExceeded) {
			c.state.transition(StateTimedOut)
			c.emit(observe.Event{Type: observe.EventTimeout, Error: err})
		} else if errors.Is(err, context.Canceled) {
			c.state.transition(StateCancelled)
		} else {
			c.state.transition(StateFailed)
		}
	default:
		c.state.transition(StateFailed)
	}
	c.emit(observe.Event{Type: observe.EventCallError, JobID: c.jobID, Duration: time.Since(c.started), Error: err})
	d.recordUsage(ctx, c, usage, err)
}

// classify maps any error left after retries onto the error taxonomy.
func classify(ctx context.Context, err error) error {
	if k := ai.KindOf(err); k == ai.KindProviderTimeout || k == ai.KindCancelled || k == ai.KindJobFailed || k == ai.KindStreamAborted {
		return err
	}
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return ai.NewError(ai.KindCancelled, "call cancelled", err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return ai.NewError(ai.KindProviderTimeout, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return ai.NewError(ai.KindCancelled, "call cancelled", err)
	case ai.KindOf(err) != "":
		return err
	case retry.IsTransient(err):
		return ai.NewError(ai.KindProviderTransportError, "provider request failed", err)
	default:
		return ai.NewError(ai.KindProviderRejected, "provider request failed", err)
	}
}

// recordUsage calls the usage hook once. Hook errors and panics are logged
// and reported, never returned.
func (d *Dispatcher) recordUsage(ctx context.Context, c *call, usage ai.Usage, callErr error) {
	if d.hook == nil {
		return
	}
	rec := ai.UsageRecord{
		CallID:      c.id,
		Provider:    c.provider.ID,
		Model:       c.model.ID,
		UserContext: c.req.UserContext,
		Usage:       usage,
		Err:         callErr,
		Duration:    time.Since(c.started),
		Timestamp:   time.Now(),
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("usage hook panicked: %v", r)
			}
		}()
		return d.hook.RecordUsage(context.WithoutCancel(ctx), rec)
	}()
	if err != nil {
		d.logger.Warn("usage hook failed", "call_id", c.id, "provider", c.provider.ID, "model", c.model.ID, "error", err)
		c.emit(observe.Event{Type: observe.EventUsageHookFailed, Error: err})
	}
}
