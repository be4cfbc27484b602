package agui

import (
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
)

func chunksOf(err error, chunks ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

func typesOf(seq iter.Seq[events.Event]) []events.EventType {
	var received []events.EventType
	for ev := range seq {
		received = append(received, ev.Type())
	}
	return received
}

func assertTypes(t *testing.T, expected, received []events.EventType) {
	t.Helper()
	if len(received) != len(expected) {
		t.Fatalf("expected %d events, got %d: %v", len(expected), len(received), received)
	}
	for i, e := range expected {
		if received[i] != e {
			t.Errorf("event %d: expected %s, got %s", i, e, received[i])
		}
	}
}

func TestNewMapper(t *testing.T) {
	t.Run("keeps given ids", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		if m.ThreadID() != "thread-1" {
			t.Errorf("ThreadID = %q, want %q", m.ThreadID(), "thread-1")
		}
		if m.RunID() != "run-1" {
			t.Errorf("RunID = %q, want %q", m.RunID(), "run-1")
		}
	})

	t.Run("generates missing ids", func(t *testing.T) {
		m := NewMapper("", "")
		if m.ThreadID() == "" || m.RunID() == "" || m.MessageID() == "" {
			t.Errorf("expected generated ids, got thread=%q run=%q message=%q", m.ThreadID(), m.RunID(), m.MessageID())
		}
	})
}

func TestMapper_Lifecycle(t *testing.T) {
	m := NewMapper("thread-1", "run-1")

	if ev := m.RunStarted(); ev.Type() != events.EventTypeRunStarted {
		t.Errorf("expected RUN_STARTED, got %s", ev.Type())
	}
	if ev := m.RunFinished(); ev.Type() != events.EventTypeRunFinished {
		t.Errorf("expected RUN_FINISHED, got %s", ev.Type())
	}
	if ev := m.RunError(nil); ev.Type() != events.EventTypeRunError {
		t.Errorf("expected RUN_ERROR, got %s", ev.Type())
	}
}

func TestMapper_MapChunks(t *testing.T) {
	t.Run("wraps chunks in a message", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		received := typesOf(m.MapChunks(chunksOf(nil, "Hel", "", "lo")))

		assertTypes(t, []events.EventType{
			events.EventTypeRunStarted,
			events.EventTypeTextMessageStart,
			events.EventTypeTextMessageContent,
			events.EventTypeTextMessageContent,
			events.EventTypeTextMessageEnd,
			events.EventTypeRunFinished,
		}, received)
	})

	t.Run("content events carry the chunks", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		var payloads []string
		for ev := range m.MapChunks(chunksOf(nil, "a", "b")) {
			if ev.Type() != events.EventTypeTextMessageContent {
				continue
			}
			data, err := ev.ToJSON()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			payloads = append(payloads, string(data))
		}
		if len(payloads) != 2 {
			t.Fatalf("expected 2 content events, got %d", len(payloads))
		}
		for i, want := range []string{`"delta":"a"`, `"delta":"b"`} {
			if !strings.Contains(payloads[i], want) {
				t.Errorf("payload %d = %s, want it to contain %s", i, payloads[i], want)
			}
			if !strings.Contains(payloads[i], m.MessageID()) {
				t.Errorf("payload %d = %s, want message id %s", i, payloads[i], m.MessageID())
			}
		}
	})

	t.Run("empty stream has no message", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		received := typesOf(m.MapChunks(chunksOf(nil)))

		assertTypes(t, []events.EventType{
			events.EventTypeRunStarted,
			events.EventTypeRunFinished,
		}, received)
	})

	t.Run("error closes the message and fails the run", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		received := typesOf(m.MapChunks(chunksOf(errors.New("stream_aborted: connection reset"), "partial")))

		assertTypes(t, []events.EventType{
			events.EventTypeRunStarted,
			events.EventTypeTextMessageStart,
			events.EventTypeTextMessageContent,
			events.EventTypeTextMessageEnd,
			events.EventTypeRunError,
		}, received)
	})

	t.Run("error before any chunk", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		received := typesOf(m.MapChunks(chunksOf(errors.New("boom"))))

		assertTypes(t, []events.EventType{
			events.EventTypeRunStarted,
			events.EventTypeRunError,
		}, received)
	})

	t.Run("stopping early stops the chunk stream", func(t *testing.T) {
		m := NewMapper("thread-1", "run-1")
		pulled := 0
		chunks := func(yield func(string, error) bool) {
			for _, c := range []string{"a", "b", "c", "d"} {
				pulled++
				if !yield(c, nil) {
					return
				}
			}
		}

		count := 0
		for range m.MapChunks(chunks) {
			count++
			if count == 3 {
				break
			}
		}
		if pulled != 1 {
			t.Errorf("pulled %d chunks, want 1", pulled)
		}
	})
}
