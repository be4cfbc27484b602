// Package usage provides UsageHook implementations that attribute token
// counts and cost to the caller's user context.
package usage

import (
	"context"
	"errors"
	"log/slog"

	ai "github.com/spetersoncode/llmcore"
)

// AnonymousUser is the user key for calls without a user context.
const AnonymousUser = "anonymous"

func userKey(rec ai.UsageRecord) string {
	if rec.UserContext == "" {
		return AnonymousUser
	}
	return rec.UserContext
}

// Log returns a hook writing one structured line per call.
func Log(logger *slog.Logger) ai.UsageHook {
	if logger == nil {
		logger = slog.Default()
	}
	return ai.UsageHookFunc(func(ctx context.Context, rec ai.UsageRecord) error {
		attrs := []any{
			"call_id", rec.CallID,
			"provider", rec.Provider,
			"model", rec.Model,
			"user", userKey(rec),
			"prompt_tokens", rec.Usage.PromptTokens,
			"completion_tokens", rec.Usage.CompletionTokens,
			"cost", rec.Usage.CostEstimate,
			"duration", rec.Duration,
		}
		if rec.Err != nil {
			logger.WarnContext(ctx, "llm usage", append(attrs, "error", rec.Err)...)
			return nil
		}
		logger.InfoContext(ctx, "llm usage", attrs...)
		return nil
	})
}

// Multi calls every hook in order and joins their errors.
func Multi(hooks ...ai.UsageHook) ai.UsageHook {
	return ai.UsageHookFunc(func(ctx context.Context, rec ai.UsageRecord) error {
		var errs []error
		for _, h := range hooks {
			if h == nil {
				continue
			}
			if err := h.RecordUsage(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
