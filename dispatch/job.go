package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/request"
	"github.com/spetersoncode/llmcore/retry"
)

// dispatchJob submits the call as a job and polls it to completion. Calls
// without a user message, and job-alternate models whose backend cannot run
// jobs, take the sync path instead.
func (d *Dispatcher) dispatchJob(ctx context.Context, c *call, be backend.Completer) (*normalize.Raw, error) {
	runner, ok := be.(backend.JobRunner)
	if !ok {
		return d.dispatchSync(ctx, c, be)
	}
	job, ok := request.BuildJob(c.payload)
	if !ok {
		d.logger.Debug("no user message for job, using sync path", "call_id", c.id, "model", c.payload.Model)
		return d.dispatchSync(ctx, c, be)
	}

	id, err := withRetry(ctx, d.retry, c, func() (string, error) {
		return runner.Submit(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	c.jobID = id
	c.emit(observe.Event{Type: observe.EventJobSubmitted, JobID: id})

	raw, err := d.pollJob(ctx, c, runner, id)
	if err != nil {
		switch ai.KindOf(err) {
		case ai.KindProviderTimeout, ai.KindCancelled:
			d.cancelJob(ctx, c, be, id)
		}
		return nil, err
	}
	return raw, nil
}

// pollJob polls until the job is terminal, the budget is spent or ctx is
// done. The wait before each poll grows by the configured multiplier.
func (d *Dispatcher) pollJob(ctx context.Context, c *call, runner backend.JobRunner, id string) (*normalize.Raw, error) {
	budget, cancel := context.WithTimeout(ctx, d.poll.Budget)
	defer cancel()

	interval := d.poll.Interval
	failures := 0
	for n := 1; ; n++ {
		timer := time.NewTimer(interval)
		select {
		case <-budget.Done():
			timer.Stop()
			return nil, pollStopped(ctx, id, n-1)
		case <-timer.C:
		}

		snap, err := runner.Poll(budget, id)
		if err == nil && snap == nil {
			err = ai.NewTransportError(fmt.Sprintf("job %s: poll returned no status", id), 0, nil)
		}
		ev := observe.Event{Type: observe.EventPoll, JobID: id, Attempt: n, Delay: interval, Error: err}
		if snap != nil {
			ev.JobStatus = snap.Status
		}
		c.emit(ev)

		if err != nil {
			if budget.Err() != nil {
				return nil, pollStopped(ctx, id, n)
			}
			if !retry.IsTransient(err) {
				return nil, err
			}
			failures++
			if failures >= d.poll.MaxConsecutiveErrors {
				return nil, ai.NewError(ai.KindProviderTransportError,
					fmt.Sprintf("job %s: %d consecutive poll failures", id, failures), err)
			}
		} else {
			failures = 0
			switch snap.Status {
			case ai.JobSucceeded:
				if snap.Raw == nil {
					return normalize.Blocks(nil, ai.Usage{}), nil
				}
				return snap.Raw, nil
			case ai.JobFailed, ai.JobCancelled:
				msg := fmt.Sprintf("job %s %s", id, snap.Status)
				if snap.Reason != "" {
					msg += ": " + snap.Reason
				}
				return nil, ai.Errorf(ai.KindJobFailed, "%s", msg)
			}
		}
		interval = d.poll.next(interval)
	}
}

// pollStopped explains why polling stopped before the job was terminal.
func pollStopped(ctx context.Context, id string, polls int) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ai.NewError(ai.KindCancelled, fmt.Sprintf("job %s: polling cancelled after %d polls", id, polls), ctx.Err())
	}
	return ai.Errorf(ai.KindProviderTimeout, "job %s still running after %d polls", id, polls)
}

// cancelJob asks the provider to drop an abandoned job. Failures are only
// logged.
func (d *Dispatcher) cancelJob(ctx context.Context, c *call, be backend.Completer, id string) {
	canceler, ok := be.(backend.JobCanceler)
	if !ok {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultCancelTimeout)
	defer cancel()
	if err := canceler.CancelJob(cctx, id); err != nil {
		d.logger.Warn("cancel job failed", "call_id", c.id, "job_id", id, "error", err)
	}
}
