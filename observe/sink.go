package observe

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives events. Implementations must not block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f.
func (f SinkFunc) Emit(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Emit stamps ev and hands it to sink. A nil sink drops the event. A
// panicking sink loses the event and is logged; the panic never reaches
// the caller.
func Emit(sink Sink, ev Event) {
	if sink == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("observability sink panicked", "event", string(ev.Type), "call_id", ev.CallID, "panic", r)
		}
	}()
	sink.Emit(ev)
}

// Channel returns a sink that sends to ch without blocking. Events are
// dropped while the channel is full.
func Channel(ch chan<- Event) Sink {
	return SinkFunc(func(ev Event) {
		select {
		case ch <- ev:
		default:
			// Channel full - don't block
		}
	})
}

// Multi fans events out to every sink in order. A panicking sink does not
// keep the event from the sinks after it.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			Emit(s, ev)
		}
	})
}

// Log returns a sink writing events to logger. Problems are logged at Warn,
// progress at Debug and outcomes at Info.
func Log(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return SinkFunc(func(ev Event) {
		level := levelOf(ev.Type)
		ctx := context.Background()
		if !logger.Enabled(ctx, level) {
			return
		}
		attrs := []slog.Attr{
			slog.String("event", string(ev.Type)),
			slog.String("call_id", ev.CallID),
			slog.String("provider", ev.Provider),
			slog.String("model", ev.Model),
		}
		if ev.State != "" {
			attrs = append(attrs, slog.String("state", ev.State))
		}
		if ev.Attempt > 0 {
			attrs = append(attrs, slog.Int("attempt", ev.Attempt))
		}
		if ev.Delay > 0 {
			attrs = append(attrs, slog.Duration("delay", ev.Delay))
		}
		if ev.Parameter != "" {
			attrs = append(attrs, slog.String("parameter", ev.Parameter))
		}
		if ev.JobID != "" {
			attrs = append(attrs, slog.String("job_id", ev.JobID))
		}
		if ev.JobStatus != "" {
			attrs = append(attrs, slog.String("job_status", string(ev.JobStatus)))
		}
		if ev.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", ev.Duration))
		}
		if ev.Usage != nil {
			attrs = append(attrs,
				slog.Int("prompt_tokens", ev.Usage.PromptTokens),
				slog.Int("completion_tokens", ev.Usage.CompletionTokens),
				slog.Float64("cost", ev.Usage.CostEstimate))
		}
		if ev.Error != nil {
			attrs = append(attrs, slog.String("error", ev.Error.Error()))
		}
		msg := ev.Message
		if msg == "" {
			msg = "llm " + string(ev.Type)
		}
		logger.LogAttrs(ctx, level, msg, attrs...)
	})
}

func levelOf(t EventType) slog.Level {
	switch t {
	case EventRetry, EventRetriesExhausted, EventParameterDropped, EventUnknownBlock, EventTimeout, EventUsageHookFailed, EventCallError:
		return slog.LevelWarn
	case EventCallStart, EventCallComplete, EventJobSubmitted:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
