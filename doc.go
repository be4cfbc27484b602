// Package llmcore defines the data model shared by the provider-call
// orchestration layer: a provider-agnostic chat request goes in, a uniform
// result with text, optional thoughts and usage comes out.
//
// The work is split across packages:
//
//   - [github.com/spetersoncode/llmcore/registry]: the immutable catalog of providers, models and parameter specs
//   - [github.com/spetersoncode/llmcore/param]: parameter defaults, validation and mutual exclusivity
//   - [github.com/spetersoncode/llmcore/request]: provider call payload assembly
//   - [github.com/spetersoncode/llmcore/dispatch]: sync and submit-and-poll dispatch, streaming
//   - [github.com/spetersoncode/llmcore/normalize]: flat and block-structured response normalization
//   - [github.com/spetersoncode/llmcore/client]: credentials and SDK backends wired together
//
// # Basic Usage
//
//	c, err := client.New(client.Config{Registry: registry.Default()})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := c.Call(ctx, &llmcore.CallRequest{
//	    Provider: "openai",
//	    Model:    "gpt-4.1-mini",
//	    Messages: []llmcore.Message{
//	        {Role: llmcore.RoleSystem, Content: "Answer briefly."},
//	        {Role: llmcore.RoleUser, Content: "What is the capital of France?"},
//	    },
//	    ParameterOverrides: map[string]any{"temperature": 0.2},
//	    UserContext:        "user-42",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Content)
//
// # Errors
//
// Every failure is an [*Error] carrying a [Kind]. Lookup and validation
// failures are reported before any network activity:
//
//	if llmcore.IsKind(err, llmcore.KindParameterValidation) {
//	    // fix the request
//	}
package llmcore
