package dispatch

import (
	"context"

	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/retry"
)

// dispatchSync performs one completion, retrying transient failures.
func (d *Dispatcher) dispatchSync(ctx context.Context, c *call, be backend.Completer) (*normalize.Raw, error) {
	return withRetry(ctx, d.retry, c, func() (*normalize.Raw, error) {
		return be.Complete(ctx, c.payload)
	})
}

// withRetry runs fn under the retry policy. Scheduled retries and spent
// attempt budgets are reported to the call's sink; permanent failures
// surface through the call_error event instead.
func withRetry[T any](ctx context.Context, cfg retry.Config, c *call, fn func() (T, error)) (T, error) {
	return retry.DoObserved(ctx, cfg, func(f retry.Failure) {
		switch f.Decision {
		case retry.Retry:
			c.emit(observe.Event{Type: observe.EventRetry, Attempt: f.Attempt, Delay: f.Wait, Error: f.Err})
		case retry.Exhausted:
			c.emit(observe.Event{Type: observe.EventRetriesExhausted, Attempt: f.Attempt, Error: f.Err})
		}
	}, fn)
}
