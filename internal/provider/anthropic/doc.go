// Package anthropic adapts the Anthropic Messages API to the dispatcher
// backends.
//
// Responses are block-structured: text, thinking and tool_use blocks are
// handed to the normalizer in order. Server-side tool results keep their
// block type and are skipped during normalization.
//
// # Extended Thinking
//
// An enabled reasoning effort turns on extended thinking with a token
// budget:
//
//	low     1024 tokens
//	medium  2048 tokens
//	high    4096 tokens
//
// Sampling parameters are not sent while thinking is on, and max_tokens is
// raised above the budget when needed.
package anthropic
