package agui

import (
	"iter"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
)

// Mapper converts a chunk stream into AG-UI events.
//
// Create a new Mapper for each run using NewMapper. The Mapper is not
// safe for concurrent use.
type Mapper struct {
	threadID  string
	runID     string
	messageID string
}

// NewMapper creates a new Mapper for a single run.
// Empty ids are generated.
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID:  threadID,
		runID:     runID,
		messageID: events.GenerateMessageID(),
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// MessageID returns the id of the assistant message the chunks belong to.
func (m *Mapper) MessageID() string {
	return m.messageID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// MapChunks wraps a chunk stream in a run:
//
//	RUN_STARTED
//	TEXT_MESSAGE_START, TEXT_MESSAGE_CONTENT..., TEXT_MESSAGE_END
//	RUN_FINISHED or RUN_ERROR
//
// The message events are omitted when no text arrives. A stream error
// closes the open message and ends the run with RUN_ERROR. Stopping
// iteration stops consuming chunks.
func (m *Mapper) MapChunks(chunks iter.Seq2[string, error]) iter.Seq[events.Event] {
	return func(yield func(events.Event) bool) {
		if !yield(m.RunStarted()) {
			return
		}
		started := false
		for chunk, err := range chunks {
			if err != nil {
				if started && !yield(events.NewTextMessageEndEvent(m.messageID)) {
					return
				}
				yield(m.RunError(err))
				return
			}
			if chunk == "" {
				continue
			}
			if !started {
				started = true
				if !yield(events.NewTextMessageStartEvent(m.messageID, events.WithRole(RoleAssistant))) {
					return
				}
			}
			if !yield(events.NewTextMessageContentEvent(m.messageID, chunk)) {
				return
			}
		}
		if started && !yield(events.NewTextMessageEndEvent(m.messageID)) {
			return
		}
		yield(m.RunFinished())
	}
}
