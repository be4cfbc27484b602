package google

import (
	"errors"

	"google.golang.org/genai"

	"github.com/spetersoncode/llmcore/internal/provider/apierr"
)

// wrapError wraps a Google GenAI error with llmcore error kinds.
// Note: Google's genai.APIError doesn't expose headers, so Retry-After is not available.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		// Not an API error, return as-is (likely network error, handled by heuristics)
		return err
	}
	return apierr.FromStatus("google: "+apiErr.Message, apiErr.Code, 0, err)
}
