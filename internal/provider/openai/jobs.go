package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	ai "github.com/spetersoncode/llmcore"
	"github.com/spetersoncode/llmcore/backend"
	"github.com/spetersoncode/llmcore/normalize"
	"github.com/spetersoncode/llmcore/request"
)

// responsesFields maps catalog parameter names onto Responses API fields.
var responsesFields = map[string]string{
	"max_tokens": "max_output_tokens",
}

// Submit starts a background response and returns its id.
func (c *Client) Submit(ctx context.Context, job *request.JobPayload) (string, error) {
	params := responses.ResponseNewParams{
		Model:      job.ModelID,
		Background: openai.Bool(true),
		Store:      openai.Bool(true),
		Input:      responses.ResponseNewParamsInputUnion{OfString: openai.String(job.Input)},
	}
	if job.Instructions != "" {
		params.Instructions = openai.String(job.Instructions)
	}
	if job.ReasoningEnabled() {
		params.Reasoning = shared.ReasoningParam{
			Effort:  shared.ReasoningEffort(job.ReasoningEffort),
			Summary: shared.ReasoningSummaryAuto,
		}
	}
	if job.UserContext != "" {
		params.User = openai.String(job.UserContext)
	}

	opts := append(paramOptions(job.Payload, responsesFields), toolsOption(job.Tools, responsesTool)...)
	resp, err := c.client.Responses.New(ctx, params, opts...)
	if err != nil {
		return "", wrapError(err)
	}
	return resp.ID, nil
}

// Poll fetches the current state of a background response.
func (c *Client) Poll(ctx context.Context, jobID string) (*backend.JobSnapshot, error) {
	resp, err := c.client.Responses.Get(ctx, jobID, responses.ResponseGetParams{})
	if err != nil {
		return nil, wrapError(err)
	}

	snap := &backend.JobSnapshot{ID: resp.ID, Status: jobStatus(resp.Status)}
	switch snap.Status {
	case ai.JobSucceeded:
		snap.Raw = convertResponse(resp)
	case ai.JobFailed:
		snap.Reason = resp.Error.Message
	}
	return snap, nil
}

// CancelJob cancels a background response.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	_, err := c.client.Responses.Cancel(ctx, jobID)
	return wrapError(err)
}

// jobStatus maps a response status. An incomplete response, cut short by
// the output token limit, still carries usable output.
func jobStatus(s responses.ResponseStatus) ai.JobStatus {
	switch s {
	case responses.ResponseStatusQueued:
		return ai.JobQueued
	case responses.ResponseStatusInProgress:
		return ai.JobRunning
	case responses.ResponseStatusCompleted, responses.ResponseStatusIncomplete:
		return ai.JobSucceeded
	case responses.ResponseStatusCancelled:
		return ai.JobCancelled
	case responses.ResponseStatusFailed:
		return ai.JobFailed
	default:
		return ai.JobRunning
	}
}

// convertResponse turns the output items into blocks. Items other than
// messages, reasoning and function calls keep their type and are skipped
// by the normalizer.
func convertResponse(resp *responses.Response) *normalize.Raw {
	var blocks []normalize.Block
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" {
					blocks = append(blocks, normalize.Block{Type: normalize.BlockText, Text: part.Text})
				}
			}
		case "reasoning":
			summary := make([]string, len(item.Summary))
			for i, s := range item.Summary {
				summary[i] = s.Text
			}
			blocks = append(blocks, normalize.Block{
				Type: normalize.BlockThought,
				Text: strings.Join(summary, "\n"),
				Raw:  []byte(item.RawJSON()),
			})
		case "function_call":
			blocks = append(blocks, normalize.Block{
				Type: normalize.BlockToolUse,
				ToolCall: &ai.ToolCall{
					ID:        item.CallID,
					Type:      "function",
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			})
		default:
			blocks = append(blocks, normalize.Block{Type: normalize.BlockType(item.Type), Raw: []byte(item.RawJSON())})
		}
	}
	return normalize.Blocks(blocks, ai.Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	})
}
