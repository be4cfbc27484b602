package anthropic

import (
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/spetersoncode/llmcore/internal/provider/apierr"
)

// wrapError wraps an Anthropic SDK error with llmcore error kinds.
// Overloaded (529) counts as a server error.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := "anthropic: " + http.StatusText(apiErr.StatusCode)
	if msg == "anthropic: " {
		msg = "anthropic: request failed"
	}
	return apierr.FromStatus(msg, apiErr.StatusCode, apierr.RetryAfter(apiErr.Response), err)
}
