// Package api provides the model client used by the chat interpreter.
//
// # Architecture
//
//   - client.go: ModelClient interface, CompletionRequest and the NewClient factory
//   - openai.go: client for OpenAI-compatible /chat/completions endpoints
//   - stream.go: Server-Sent Events (SSE) processor for streaming responses
//   - retry.go: exponential backoff for transient HTTP failures
//
// Every configured model alias gets its own client (base URL + API key); the
// model name and sampling parameters travel with each CompletionRequest, so
// per-alias overrides never require a new client.
//
// # Usage
//
//	entry, _ := cfg.Lookup("gpt4")
//	client, err := api.NewClient(entry, api.Options{Verbose: cfg.Verbose})
//	if err != nil {
//	    // handle error
//	}
//	defer client.Close()
//
//	text, err := client.Complete(ctx, api.CompletionRequest{
//	    Model:       entry.Name,
//	    System:      "You are a helpful assistant.",
//	    Prompt:      "Hello",
//	    Temperature: entry.GetTemperature(),
//	})
//
// Failures from the server are returned as *APIError carrying the HTTP status.
package api
