// Package normalize turns provider responses into a uniform call result.
//
// Backends report either a flat chat message or an ordered list of typed
// content blocks. Both shapes go through [Normalize], which is the only
// place that knows how text, reasoning and tool calls are laid out.
package normalize

import (
	"encoding/json"
	"strings"

	ai "github.com/spetersoncode/llmcore"
)

// Shape tags which field of Raw is set.
type Shape int

const (
	ShapeFlat Shape = iota
	ShapeBlocks
)

// BlockType is the kind of a content block.
type BlockType string

const (
	BlockText    BlockType = "text"
	BlockThought BlockType = "thought"
	BlockToolUse BlockType = "tool_use"
)

// Block is one typed content block of a block-structured response.
type Block struct {
	Type BlockType
	// Text is set for text and thought blocks.
	Text string
	// ToolCall is set for tool_use blocks.
	ToolCall *ai.ToolCall
	// Raw is the provider's JSON for the block, kept for thought blocks.
	Raw json.RawMessage
}

// FlatMessage is a chat-completion style message.
type FlatMessage struct {
	Content       string
	ReasoningText string
	ToolCalls     []ai.ToolCall
}

// Raw is a provider response before normalization.
type Raw struct {
	Shape  Shape
	Flat   *FlatMessage
	Blocks []Block
	// Usage carries token counts and, when the provider reports it, cost.
	Usage ai.Usage
}

// Flat wraps a flat message.
func Flat(msg FlatMessage, usage ai.Usage) *Raw {
	return &Raw{Shape: ShapeFlat, Flat: &msg, Usage: usage}
}

// Blocks wraps an ordered list of blocks.
func Blocks(blocks []Block, usage ai.Usage) *Raw {
	return &Raw{Shape: ShapeBlocks, Blocks: blocks, Usage: usage}
}

// Normalize converts raw into a CallResult. Text blocks and thought blocks
// are each concatenated in order with no separator, since providers such as
// Gemini split one passage across several parts. Thoughts are omitted when the
// model does not return thoughts or when nothing was extracted. Blocks of
// an unknown type are skipped and returned so the caller can log them.
func Normalize(raw *Raw, returnsThoughts bool) (*ai.CallResult, []Block) {
	res := &ai.CallResult{}
	if raw == nil {
		return res, nil
	}
	res.Usage = raw.Usage

	var thoughts ai.Thoughts
	var ignored []Block

	switch raw.Shape {
	case ShapeFlat:
		if raw.Flat != nil {
			res.Content = raw.Flat.Content
			thoughts.ReasoningText = raw.Flat.ReasoningText
			thoughts.ToolCalls = append(thoughts.ToolCalls, raw.Flat.ToolCalls...)
		}

	case ShapeBlocks:
		var content strings.Builder
		var reasoning strings.Builder
		for _, b := range raw.Blocks {
			switch b.Type {
			case BlockText:
				content.WriteString(b.Text)
			case BlockThought:
				reasoning.WriteString(b.Text)
				thoughts.RawThoughtBlocks = append(thoughts.RawThoughtBlocks, rawThought(b))
			case BlockToolUse:
				if b.ToolCall != nil {
					thoughts.ToolCalls = append(thoughts.ToolCalls, *b.ToolCall)
				}
			default:
				ignored = append(ignored, b)
			}
		}
		res.Content = content.String()
		thoughts.ReasoningText = reasoning.String()
	}

	if returnsThoughts && !thoughts.Empty() {
		res.Thoughts = &thoughts
	}
	return res, ignored
}

func rawThought(b Block) json.RawMessage {
	if len(b.Raw) > 0 {
		return b.Raw
	}
	data, _ := json.Marshal(struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}{Type: string(BlockThought), Text: b.Text})
	return data
}
