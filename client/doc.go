// Package client wires credentials and provider SDKs into a dispatcher.
//
// A Client builds one backend per provider the first time the provider is
// used. The registry's driver field selects the SDK:
//
//   - openai: Chat Completions and the Responses API, also used for
//     OpenAI-compatible servers through baseURL
//   - anthropic: the Messages API
//   - google: the Gemini API
//   - vertex: Gemini on Vertex AI, using GOOGLE_CLOUD_PROJECT,
//     GOOGLE_CLOUD_LOCATION and Application Default Credentials
//
// # Basic Usage
//
//	c := client.New(client.Config{
//	    Registry: registry.Default(),
//	    APIKeys:  map[string]string{"anthropic": os.Getenv("ANTHROPIC_API_KEY")},
//	    Options: []dispatch.Option{
//	        dispatch.WithUsageHook(usage.Log(slog.Default())),
//	    },
//	})
//
//	res, err := c.Call(ctx, &llmcore.CallRequest{
//	    Provider: "anthropic",
//	    Model:    "claude-sonnet-4-20250514",
//	    Messages: []llmcore.Message{{Role: llmcore.RoleUser, Content: "Hello!"}},
//	})
//
// # Credentials
//
// Keys in Config.APIKeys win over the environment. Otherwise the variable
// named by the provider's credentialEnvVar is read when the provider is
// first used. A missing key fails the call with KindConfiguration before
// any request is sent.
package client
