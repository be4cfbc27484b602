// Package observe carries diagnostic events out of the call path.
//
// Every sink is fire-and-forget: Emit must never block the call that
// produced the event. Sinks drop events rather than wait.
package observe

import (
	"time"

	ai "github.com/spetersoncode/llmcore"
)

// EventType identifies the kind of event occurring during a call.
type EventType string

const (
	// EventCallStart fires when a call passed validation and is dispatched.
	EventCallStart EventType = "call_start"

	// EventStateChange fires on every call state transition.
	EventStateChange EventType = "state_change"

	// EventRetry fires before a failed attempt is retried.
	EventRetry EventType = "retry"

	// EventRetriesExhausted fires when a transient failure used up the last attempt.
	EventRetriesExhausted EventType = "retries_exhausted"

	// EventJobSubmitted fires when an async job was accepted upstream.
	EventJobSubmitted EventType = "job_submitted"

	// EventPoll fires after each job status poll.
	EventPoll EventType = "poll"

	// EventParameterDropped fires when a caller value lost an exclusivity conflict.
	EventParameterDropped EventType = "parameter_dropped"

	// EventUnknownBlock fires for response blocks the normalizer skipped.
	EventUnknownBlock EventType = "unknown_block"

	// EventTimeout fires when a deadline or the poll budget ran out.
	EventTimeout EventType = "timeout"

	// EventUsageHookFailed fires when the usage hook returned an error or panicked.
	EventUsageHookFailed EventType = "usage_hook_failed"

	// EventCallComplete fires after a call succeeded.
	EventCallComplete EventType = "call_complete"

	// EventCallError fires after a call failed.
	EventCallError EventType = "call_error"
)

// Event represents an observable occurrence during a call.
type Event struct {
	// Type identifies the kind of event.
	Type EventType

	CallID   string
	Provider string
	Model    string

	// State is the new call state for EventStateChange.
	State string

	// Attempt is the failed attempt (EventRetry, EventRetriesExhausted) or the
	// poll number (EventPoll).
	Attempt int

	// Delay is the wait before the next attempt or poll.
	Delay time.Duration

	// Parameter names the dropped parameter for EventParameterDropped.
	Parameter string

	// JobID is set for job events.
	JobID string

	// JobStatus is the polled status for EventPoll.
	JobStatus ai.JobStatus

	// Message is a human-readable detail.
	Message string

	// Duration is the elapsed time for completed calls.
	Duration time.Duration

	// Usage is set for EventCallComplete.
	Usage *ai.Usage

	// Error contains the failure for error events.
	Error error

	// Timestamp is when the event occurred.
	Timestamp time.Time
}
