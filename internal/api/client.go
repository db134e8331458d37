package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/quocvuong92/chatybot/internal/config"
	"github.com/quocvuong92/chatybot/internal/logging"
)

// CompletionRequest is one chat turn: an optional system message and a
// fully-assembled user prompt, plus the sampling parameters to use.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	TopK        int
}

// ModelClient defines the interface for completion clients.
// OpenAIClient implements it; tests substitute fakes.
type ModelClient interface {
	// Complete sends a request and returns the whole completion
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// CompleteStream sends a streaming request, calling onChunk for each text
	// fragment, and returns the accumulated completion
	CompleteStream(ctx context.Context, req CompletionRequest, onChunk func(content string)) (string, error)

	// Close releases any resources held by the client
	Close()
}

// Ensure the OpenAI client implements ModelClient
var _ ModelClient = (*OpenAIClient)(nil)

// Options tunes client construction
type Options struct {
	// Verbose logs every request and response through Logger
	Verbose bool
	// Logger receives HTTP traffic when Verbose is set; defaults to logging.DefaultLogger
	Logger *logging.Logger
	// Transport overrides the underlying round tripper (tests)
	Transport http.RoundTripper
}

// NewClient creates a client for a configured model alias.
// The API key is resolved from the environment variable the entry names.
func NewClient(entry config.ModelEntry, opts Options) (ModelClient, error) {
	key, err := entry.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	if entry.Name == "" {
		return nil, fmt.Errorf("%w: alias '%s'", config.ErrMissingName, entry.Alias)
	}
	return NewOpenAIClient(entry.GetBaseURL(), key, opts), nil
}
