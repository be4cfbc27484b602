package observe

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	ai "github.com/spetersoncode/llmcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitStampsTimestamp(t *testing.T) {
	var got Event
	Emit(SinkFunc(func(ev Event) { got = ev }), Event{Type: EventCallStart})
	assert.False(t, got.Timestamp.IsZero())

	// nil sink is a no-op
	Emit(nil, Event{Type: EventCallStart})
}

func TestEmitRecoversFromPanickingSink(t *testing.T) {
	boom := SinkFunc(func(Event) { panic("sink exploded") })
	assert.NotPanics(t, func() {
		Emit(boom, Event{Type: EventCallComplete})
	})

	var got []EventType
	fanout := Multi(boom, SinkFunc(func(ev Event) { got = append(got, ev.Type) }))
	assert.NotPanics(t, func() {
		Emit(fanout, Event{Type: EventRetry})
	})
	assert.Equal(t, []EventType{EventRetry}, got)
}

func TestChannelDoesNotBlock(t *testing.T) {
	ch := make(chan Event, 1)
	sink := Channel(ch)

	done := make(chan struct{})
	go func() {
		sink.Emit(Event{Type: EventRetry, Attempt: 1})
		sink.Emit(Event{Type: EventRetry, Attempt: 2}) // dropped
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("channel sink blocked")
	}
	ev := <-ch
	assert.Equal(t, 1, ev.Attempt)
	assert.Empty(t, ch)
}

func TestMulti(t *testing.T) {
	var a, b []EventType
	sink := Multi(
		SinkFunc(func(ev Event) { a = append(a, ev.Type) }),
		nil,
		SinkFunc(func(ev Event) { b = append(b, ev.Type) }),
	)
	sink.Emit(Event{Type: EventPoll})
	assert.Equal(t, []EventType{EventPoll}, a)
	assert.Equal(t, []EventType{EventPoll}, b)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := Log(logger)

	sink.Emit(Event{Type: EventRetry, CallID: "call-1", Provider: "openai", Model: "gpt-4.1", Attempt: 2, Delay: time.Second, Error: errors.New("bad gateway")})
	sink.Emit(Event{Type: EventPoll, CallID: "call-1"}) // below level
	sink.Emit(Event{Type: EventCallComplete, CallID: "call-1", Usage: &ai.Usage{PromptTokens: 3, CompletionTokens: 4}})

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "event=retry")
	assert.Contains(t, out, "attempt=2")
	assert.Contains(t, out, `error="bad gateway"`)
	assert.NotContains(t, out, "event=poll")
	assert.Contains(t, out, "event=call_complete")
	assert.Contains(t, out, "completion_tokens=4")
}

func TestLevelOf(t *testing.T) {
	require.Equal(t, slog.LevelWarn, levelOf(EventUsageHookFailed))
	require.Equal(t, slog.LevelInfo, levelOf(EventCallStart))
	require.Equal(t, slog.LevelDebug, levelOf(EventStateChange))
}
