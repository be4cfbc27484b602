package openai

import (
	"errors"

	"github.com/openai/openai-go"

	"github.com/spetersoncode/llmcore/internal/provider/apierr"
)

// wrapError wraps an OpenAI SDK error with llmcore error kinds.
// It extracts status codes and Retry-After headers for proper retry handling.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		// Not an API error, return as-is (likely network error, handled by heuristics)
		return err
	}
	return apierr.FromStatus("openai: "+apiErr.Message, apiErr.StatusCode, apierr.RetryAfter(apiErr.Response), err)
}
