// Package agui serves streaming calls over the AG-UI protocol.
//
// AG-UI (Agent-User Interface) is an open, lightweight, event-based protocol
// that standardizes how AI agents connect to user-facing applications.
//
// # Overview
//
// This package provides:
//   - [Mapper]: wraps a chunk stream in AG-UI's run and Start-Content-End
//     message events
//   - [Handler]: an http.Handler that decodes a RunAgentInput, starts a
//     streaming call and writes the events over SSE
//   - Message conversion utilities: [ToMessages], [FromMessages], [FromResult]
//
// # Usage
//
//	c := client.New(client.Config{Registry: registry.Default()})
//	http.Handle("/agent", agui.NewHandler(c, agui.CallProps{
//	    Provider: "openai",
//	    Model:    "gpt-4.1-mini",
//	}, slog.Default()))
//
// Frontends may pick another model per run through forwarded_props:
//
//	{"provider": "anthropic", "model": "claude-sonnet-4-20250514",
//	 "parameters": {"temperature": 0.2}, "user": "user-42"}
//
// # Event Mapping
//
//   - stream start → RUN_STARTED
//   - first chunk → TEXT_MESSAGE_START, then TEXT_MESSAGE_CONTENT per chunk
//   - end of stream → TEXT_MESSAGE_END, RUN_FINISHED
//   - stream error → TEXT_MESSAGE_END (if a message is open), RUN_ERROR
//
// # Thread Safety
//
// The Mapper is NOT safe for concurrent use. Each run should have its own
// Mapper instance. Message conversion functions are stateless and safe for
// concurrent use.
package agui
