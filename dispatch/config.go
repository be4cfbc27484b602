package dispatch

import (
	"log/slog"
	"time"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/retry"
)

// PollConfig controls the async job poll loop.
type PollConfig struct {
	// Interval is the wait before the first poll (default: 1s).
	Interval time.Duration

	// Multiplier grows the wait after every poll (default: 1.5).
	Multiplier float64

	// MaxInterval caps the wait between polls (default: 5s).
	MaxInterval time.Duration

	// Budget is the total time allowed for polling (default: 30s).
	Budget time.Duration

	// MaxConsecutiveErrors fails the call after this many transient poll
	// errors in a row (default: 3).
	MaxConsecutiveErrors int
}

// DefaultPollConfig returns the default poll configuration.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:             time.Second,
		Multiplier:           1.5,
		MaxInterval:          5 * time.Second,
		Budget:               30 * time.Second,
		MaxConsecutiveErrors: 3,
	}
}

// withDefaults fills every unset field from DefaultPollConfig. A multiplier
// below 1 would shrink the wait and counts as unset.
func (c PollConfig) withDefaults() PollConfig {
	def := DefaultPollConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Multiplier < 1 {
		c.Multiplier = def.Multiplier
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = def.MaxInterval
	}
	if c.Budget <= 0 {
		c.Budget = def.Budget
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	return c
}

// next returns the wait after a poll that waited d.
func (c PollConfig) next(d time.Duration) time.Duration {
	n := time.Duration(float64(d) * c.Multiplier)
	if c.MaxInterval > 0 && n > c.MaxInterval {
		n = c.MaxInterval
	}
	return n
}

const (
	defaultStreamBuffer  = 4
	defaultCloseTimeout  = 2 * time.Second
	defaultCancelTimeout = 5 * time.Second
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetry sets the retry policy of sync calls, job submits and stream
// connects.
func WithRetry(cfg retry.Config) Option {
	return func(d *Dispatcher) {
		d.retry = cfg
	}
}

// WithPolling sets the async job poll policy. Zero fields keep their
// defaults.
func WithPolling(cfg PollConfig) Option {
	return func(d *Dispatcher) {
		d.poll = cfg.withDefaults()
	}
}

// WithSink sets the observability sink.
func WithSink(sink observe.Sink) Option {
	return func(d *Dispatcher) {
		d.sink = sink
	}
}

// WithUsageHook sets the hook called once per dispatched call.
func WithUsageHook(hook ai.UsageHook) Option {
	return func(d *Dispatcher) {
		d.hook = hook
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithStreamBuffer sets how many chunks a stream buffers ahead of the
// consumer (default: 4).
func WithStreamBuffer(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.streamBuffer = n
		}
	}
}

// WithCloseTimeout bounds how long Stream.Close waits for the upstream call
// to be released (default: 2s).
func WithCloseTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.closeTimeout = timeout
		}
	}
}
