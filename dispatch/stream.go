package dispatch

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"time"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/observe"
	"github.com/spetersoncode/llmcore/registry"
)

// Stream is a cancellable, pull-based sequence of content chunks.
//
// The producer runs at most a few chunks ahead of the consumer. A failure
// ends the stream with exactly one error from Recv, followed by io.EOF.
// Close aborts the upstream call; no chunk is returned after Close.
type Stream struct {
	callID       string
	chunks       chan string
	cancel       context.CancelFunc
	done         chan struct{}
	closeTimeout time.Duration

	mu           sync.Mutex
	closed       bool
	err          error
	errDelivered bool
	usage        ai.Usage
}

// CallID returns the id of the underlying call.
func (s *Stream) CallID() string { return s.callID }

// Done is closed once the upstream call has been released.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Recv returns the next chunk. It returns io.EOF after the last chunk and
// after Close.
func (s *Stream) Recv() (string, error) {
	if s.isClosed() {
		return "", io.EOF
	}
	chunk, ok := <-s.chunks
	if s.isClosed() {
		return "", io.EOF
	}
	if ok {
		return chunk, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil && !s.errDelivered {
		s.errDelivered = true
		return "", s.err
	}
	return "", io.EOF
}

// All iterates the chunks. Breaking out of the loop closes the stream.
//
//	for chunk, err := range stream.All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk)
//	}
func (s *Stream) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Close cancels the upstream call and waits, up to the close timeout, for
// it to be released. It is safe to call Close more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	timer := time.NewTimer(s.closeTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-timer.C:
		return ai.Errorf(ai.KindStreamAborted, "upstream call not released within %s", s.closeTimeout)
	}
}

// Err returns the terminal error once the stream is done, or nil.
func (s *Stream) Err() error {
	select {
	case <-s.done:
	default:
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Usage returns the token usage reported by the provider. It is complete
// once Done is closed.
func (s *Stream) Usage() ai.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stream starts a streaming call. Lookup and validation failures are
// returned directly; everything after dispatch is reported through the
// stream.
func (d *Dispatcher) Stream(ctx context.Context, req *ai.CallRequest) (*Stream, error) {
	c, err := d.prepare(req)
	if err != nil {
		return nil, err
	}
	be, err := d.start(ctx, c)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		callID:       c.id,
		chunks:       make(chan string, d.streamBuffer),
		cancel:       cancel,
		done:         make(chan struct{}),
		closeTimeout: d.closeTimeout,
	}
	go d.produce(ctx, sctx, c, be, s)
	return s, nil
}

// produce feeds s until the upstream call ends. parent is the caller's
// context, used to tell a caller deadline from a consumer Close.
func (d *Dispatcher) produce(parent, ctx context.Context, c *call, be backend.Completer, s *Stream) {
	defer close(s.done)
	defer s.cancel()

	usage, err := d.pump(ctx, c, be, s)
	usage = c.costed(usage)

	if err != nil {
		err = streamError(parent, ctx, err)
	}
	s.mu.Lock()
	s.err = err
	s.usage = usage
	s.mu.Unlock()
	close(s.chunks)

	if err != nil {
		d.fail(parent, c, err, usage)
		return
	}
	c.state.transition(StateSucceeded)
	c.emit(observe.Event{Type: observe.EventCallComplete, Duration: time.Since(c.started), Usage: &usage})
	d.recordUsage(parent, c, usage, nil)
}

// errStreamInterrupted marks failures after the first chunk was delivered.
type errStreamInterrupted struct{ cause error }

func (e *errStreamInterrupted) Error() string { return e.cause.Error() }
func (e *errStreamInterrupted) Unwrap() error { return e.cause }

// pump moves deltas into s. Job routes and backends without streaming
// produce a single chunk carrying the whole result.
func (d *Dispatcher) pump(ctx context.Context, c *call, be backend.Completer, s *Stream) (ai.Usage, error) {
	streamer, ok := be.(backend.Streamer)
	if c.route != registry.APIStyleSync || !ok {
		raw, err := d.strategies[c.route](ctx, c, be)
		if err != nil {
			return ai.Usage{}, err
		}
		res := d.normalize(c, raw)
		if res.Content != "" {
			if err := send(ctx, s, res.Content); err != nil {
				return res.Usage, err
			}
		}
		return res.Usage, nil
	}

	type pulled struct {
		first backend.Delta
		next  func() (backend.Delta, error, bool)
		stop  func()
		empty bool
	}
	// Connection failures before the first delta are retried like a sync call.
	p, err := withRetry(ctx, d.retry, c, func() (*pulled, error) {
		next, stop := iter.Pull2(streamer.Stream(ctx, c.payload))
		first, err, ok := next()
		if err != nil {
			stop()
			return nil, err
		}
		return &pulled{first: first, next: next, stop: stop, empty: !ok}, nil
	})
	if err != nil {
		return ai.Usage{}, err
	}
	defer p.stop()
	if p.empty {
		return ai.Usage{}, nil
	}

	var usage ai.Usage
	delta := p.first
	for {
		if delta.Usage != nil {
			usage = *delta.Usage
		}
		if delta.Text != "" {
			if err := send(ctx, s, delta.Text); err != nil {
				return usage, err
			}
		}
		var err error
		var ok bool
		delta, err, ok = p.next()
		if err != nil {
			return usage, &errStreamInterrupted{cause: err}
		}
		if !ok {
			return usage, nil
		}
	}
}

func send(ctx context.Context, s *Stream, chunk string) error {
	select {
	case s.chunks <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// streamError maps a producer failure onto the error taxonomy. Failures
// before the first chunk keep their kind; interruptions become
// KindStreamAborted.
func streamError(parent, ctx context.Context, err error) error {
	var interrupted *errStreamInterrupted
	switch {
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		return ai.NewError(ai.KindStreamAborted, "stream deadline exceeded", context.DeadlineExceeded)
	case ctx.Err() != nil:
		return ai.NewError(ai.KindStreamAborted, "stream cancelled", context.Canceled)
	case errors.As(err, &interrupted):
		return ai.NewError(ai.KindStreamAborted, "stream interrupted", interrupted.cause)
	default:
		return classify(ctx, err)
	}
}
