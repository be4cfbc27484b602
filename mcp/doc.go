// Package mcp exposes call dispatch as an MCP (Model Context Protocol) server.
//
// MCP clients such as Claude Desktop or an IDE agent can discover the
// server's tools and use them to consult other models:
//
//   - chat: provider, model and prompt in; the reply, extracted reasoning
//     and token usage out
//   - list_models: the catalog, with each model's parameters, defaults,
//     ranges and built-in tools
//
// # Serving over stdio
//
//	c := client.New(client.Config{Registry: registry.Default()})
//	if err := mcp.ServeStdio(c, mcp.WithName("llmcore")); err != nil {
//	    log.Fatal(err)
//	}
//
// Call failures are returned as tool errors carrying the error kind, for
// example "parameter_validation: temperature: 5 is above the maximum 2".
package mcp
