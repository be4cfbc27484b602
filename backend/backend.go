// Package backend defines the contracts between the dispatcher and the
// provider SDK adapters.
//
// A provider adapter implements [Completer] for synchronous calls and may
// additionally implement [JobRunner], [JobCanceler] and [Streamer]. The
// dispatcher discovers the optional capabilities with type assertions.
//
// Adapters report failures as *llmcore.Error: rate limits, 5xx and network
// failures as KindProviderTransportError, other client errors as
// KindProviderRejected.
package backend

import (
	"context"
	"iter"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/request"
)

// Completer performs one synchronous call.
type Completer interface {
	Complete(ctx context.Context, p *request.Payload) (*normalize.Raw, error)
}

// JobSnapshot is the state of a job at one poll.
type JobSnapshot struct {
	ID     string
	Status ai.JobStatus
	// Raw is set once the job succeeded.
	Raw *normalize.Raw
	// Reason explains a failed or cancelled job.
	Reason string
}

// JobRunner submits and polls server-side jobs. Poll returns a non-nil
// snapshot whenever it returns a nil error; the dispatcher counts a missing
// snapshot as a transient poll failure.
type JobRunner interface {
	Submit(ctx context.Context, p *request.JobPayload) (string, error)
	Poll(ctx context.Context, jobID string) (*JobSnapshot, error)
}

// JobCanceler cancels an outstanding job.
type JobCanceler interface {
	CancelJob(ctx context.Context, jobID string) error
}

// Delta is one streamed increment. The final delta of a stream may carry
// only usage.
type Delta struct {
	Text  string
	Usage *ai.Usage
}

// Streamer performs a streaming call. The sequence ends after the last
// delta or after the first error. Stopping iteration releases the
// upstream connection.
type Streamer interface {
	Stream(ctx context.Context, p *request.Payload) iter.Seq2[Delta, error]
}
