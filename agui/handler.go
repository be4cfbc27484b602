package agui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/dispatch"
)

// Streamer starts streaming calls. *client.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, req *ai.CallRequest) (*dispatch.Stream, error)
}

// Handler runs AG-UI requests as streaming calls and writes the events
// over SSE.
type Handler struct {
	streamer Streamer
	defaults CallProps
	logger   *slog.Logger
}

// NewHandler creates a handler. defaults select the model when the
// request's forwarded_props do not. A nil logger uses slog.Default().
func NewHandler(s Streamer, defaults CallProps, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{streamer: s, defaults: defaults, logger: logger}
}

// ServeHTTP handles POST requests to run a call and stream events via SSE.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		h.logger.Warn("method not allowed", "method", r.Method, "path", r.URL.Path)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var input RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	log := h.logger.With(
		"run_id", input.RunID,
		"thread_id", input.ThreadID,
	)

	prepared, err := input.Prepare(h.defaults)
	if err != nil {
		log.Warn("invalid input", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	stream, err := h.streamer.Stream(r.Context(), prepared.Request)
	if err != nil {
		log.Warn("call rejected", "error", err, "kind", ai.KindOf(err))
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	defer stream.Close()

	log = log.With("call_id", stream.CallID(), "provider", prepared.Request.Provider, "model", prepared.Request.Model)
	log.Info("request started", "message_count", len(prepared.Request.Messages))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	mapper := NewMapper(prepared.ThreadID, prepared.RunID)
	var eventCount int
	for ev := range mapper.MapChunks(stream.All()) {
		eventCount++
		if err := WriteSSE(w, ev); err != nil {
			log.Error("failed to write SSE event", "error", err, "event_type", ev.Type())
			return
		}
		flusher.Flush()
	}

	usage := stream.Usage()
	if err := stream.Err(); err != nil {
		log.Warn("request failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"events_sent", eventCount,
			"error", err,
		)
		return
	}
	log.Info("request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", eventCount,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
	)
}

// WriteSSE writes an AG-UI event in SSE format.
func WriteSSE(w io.Writer, ev events.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	// Write SSE format: event: TYPE\ndata: {json}\n\n
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), string(data)); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// statusOf maps a pre-dispatch failure to an HTTP status.
func statusOf(err error) int {
	switch ai.KindOf(err) {
	case ai.KindProviderNotFound, ai.KindModelNotFound:
		return http.StatusNotFound
	case ai.KindParameterValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
