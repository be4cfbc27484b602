package llmcore

import (
	"context"
	"time"
)

// UsageRecord is handed to the UsageHook once per dispatched call.
type UsageRecord struct {
	CallID      string
	Provider    string
	Model       string
	UserContext string
	Usage       Usage
	// Err is the call's outcome; nil on success.
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

// Succeeded returns true if the call returned a result.
func (r UsageRecord) Succeeded() bool {
	return r.Err == nil
}

// UsageHook receives token and cost data after every dispatched call.
// Its errors are logged and never change the outcome of the call.
type UsageHook interface {
	RecordUsage(ctx context.Context, rec UsageRecord) error
}

// UsageHookFunc adapts a function to UsageHook.
type UsageHookFunc func(ctx context.Context, rec UsageRecord) error

// RecordUsage calls f.
func (f UsageHookFunc) RecordUsage(ctx context.Context, rec UsageRecord) error {
	return f(ctx, rec)
}
