// Package retry repeats provider operations that failed for transient
// reasons, waiting an exponentially growing, jittered backoff in between.
//
// Whether a failure is worth another attempt is decided by [IsTransient],
// which reads the llmcore error kind first and only falls back to status
// codes and network error inspection for errors no adapter classified.
package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Config is a retry policy.
type Config struct {
	// MaxAttempts bounds the total number of attempts, the first one
	// included (default: 3). Values below 1 mean a single attempt.
	MaxAttempts int

	// InitialDelay is the backoff after the first failed attempt
	// (default: 500ms).
	InitialDelay time.Duration

	// MaxDelay caps the backoff (default: 8s). Zero means no cap.
	MaxDelay time.Duration

	// Multiplier grows the backoff after every failed attempt (default: 2).
	Multiplier float64

	// Jitter spreads each backoff by up to this fraction in either
	// direction (default: 0.1).
	Jitter float64
}

// DefaultConfig returns the policy used when none is configured.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

// Disabled returns a policy that makes exactly one attempt.
func Disabled() Config {
	return Config{MaxAttempts: 1}
}

func (c Config) attempts() int {
	return max(c.MaxAttempts, 1)
}

// Backoff returns the wait after failed attempt n, counting from 1.
func (c Config) Backoff(n int) time.Duration {
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(c.InitialDelay) * math.Pow(mult, float64(max(n, 1)-1))
	if c.MaxDelay > 0 {
		d = math.Min(d, float64(c.MaxDelay))
	}
	if c.Jitter > 0 {
		d *= 1 + c.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(d)
}
