package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/quocvuong92/chatybot/internal/constants"
	"github.com/quocvuong92/chatybot/internal/logging"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the Chat Completions API request
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopK        int       `json:"top_k,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Delta represents streaming delta content
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Choice represents a response choice
type Choice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta,omitempty"`
	Message      Message `json:"message,omitempty"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatResponse represents the API response
type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ErrorResponse represents an OpenAI-style error body
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// APIError represents an error with status code
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewOpenAIClient creates a client for baseURL authenticated with apiKey
func NewOpenAIClient(baseURL, apiKey string, opts Options) *OpenAIClient {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	if opts.Verbose {
		logger := opts.Logger
		if logger == nil {
			logger = logging.DefaultLogger
		}
		transport = logging.NewLoggingRoundTripper(transport, logging.NewHTTPLogger(logger))
	}

	return &OpenAIClient{
		httpClient: &http.Client{
			Timeout:   constants.DefaultAPITimeout,
			Transport: transport,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// endpoint returns the chat completions URL
func (c *OpenAIClient) endpoint() string {
	return c.baseURL + "/chat/completions"
}

// buildRequest converts a CompletionRequest into the wire format
func buildRequest(req CompletionRequest, stream bool) ChatRequest {
	var messages []Message
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	temperature := req.Temperature
	return ChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
		TopK:        req.TopK,
		Stream:      stream,
	}
}

func (c *OpenAIClient) newHTTPRequest(ctx context.Context, body []byte, stream bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// Complete sends a query (non-streaming)
func (c *OpenAIClient) Complete(ctx context.Context, creq CompletionRequest) (string, error) {
	jsonData, err := json.Marshal(buildRequest(creq, false))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Use retry logic for transient failures
	resp, err := WithRetry(ctx, func() (*ChatResponse, error) {
		req, err := c.newHTTPRequest(ctx, jsonData, false)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, newAPIError(resp.StatusCode, body)
		}

		var chatResp ChatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		return &chatResp, nil
	})
	if err != nil {
		return "", err
	}
	return resp.GetContent(), nil
}

// CompleteStream sends a streaming query
func (c *OpenAIClient) CompleteStream(ctx context.Context, creq CompletionRequest, onChunk func(content string)) (string, error) {
	jsonData, err := json.Marshal(buildRequest(creq, true))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	// Use retry logic for transient failures (before stream starts)
	err = WithStreamRetry(ctx, func() (*http.Response, error) {
		req, err := c.newHTTPRequest(ctx, jsonData, true)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, newAPIError(resp.StatusCode, body)
		}

		return resp, nil
	}, onChunk, func(resp *ChatResponse) {
		content = resp.GetContent()
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// Close is a no-op as the client holds no background resources
func (c *OpenAIClient) Close() {}

func newAPIError(status int, body []byte) *APIError {
	var errResp ErrorResponse
	errMsg := fmt.Sprintf("status code %d", status)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		errMsg = errResp.Error.Message
	}
	return &APIError{
		StatusCode: status,
		Message:    fmt.Sprintf("API error (%d): %s", status, errMsg),
	}
}

// GetContent extracts the content from the response
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		if r.Choices[0].Message.Content != "" {
			return r.Choices[0].Message.Content
		}
		return r.Choices[0].Delta.Content
	}
	return ""
}
