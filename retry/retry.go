package retry

import (
	"context"
	"fmt"
	"time"

	ai "github.com/spetersoncode/llmcore"
)

// Decision is what Do does after a failed attempt.
type Decision int

const (
	// Retry means another attempt follows after Failure.Wait.
	Retry Decision = iota
	// GiveUp means the error is not transient.
	GiveUp
	// Exhausted means the error was transient but no attempts are left.
	Exhausted
)

func (d Decision) String() string {
	switch d {
	case Retry:
		return "retry"
	case GiveUp:
		return "give_up"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Failure describes one failed attempt.
type Failure struct {
	Attempt  int
	Max      int
	Err      error
	Decision Decision
	// Wait is the backoff before the next attempt. Zero unless Decision is Retry.
	Wait time.Duration
}

// Observer is told about every failed attempt before Do acts on it. It runs
// on the retrying goroutine.
type Observer func(Failure)

// Do runs fn until it succeeds, fails permanently or runs out of attempts,
// and returns the last result.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	return DoObserved(ctx, cfg, nil, fn)
}

// DoObserved is Do with an observer for failed attempts. A nil observer is
// allowed.
//
// When ctx ends during a backoff the returned error wraps both the context
// error and the last attempt's error.
func DoObserved[T any](ctx context.Context, cfg Config, observe Observer, fn func() (T, error)) (T, error) {
	var zero T
	limit := cfg.attempts()

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}

		f := Failure{Attempt: n, Max: limit, Err: err}
		switch {
		case !IsTransient(err):
			f.Decision = GiveUp
		case n >= limit:
			f.Decision = Exhausted
		default:
			f.Decision = Retry
			f.Wait = max(cfg.Backoff(n), ai.RetryAfterOf(err))
		}
		if observe != nil {
			observe(f)
		}
		if f.Decision != Retry {
			return zero, err
		}

		timer := time.NewTimer(f.Wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%w after attempt %d: %w", ctx.Err(), n, err)
		case <-timer.C:
		}
	}
}
