package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// fastBackoff shrinks the retry delays for the duration of a test
func fastBackoff(t *testing.T) {
	t.Helper()
	initial, ceiling := APIInitialBackoff, APIMaxBackoff
	APIInitialBackoff = time.Millisecond
	APIMaxBackoff = 4 * time.Millisecond
	t.Cleanup(func() {
		APIInitialBackoff = initial
		APIMaxBackoff = ceiling
	})
}

func TestShouldRetryAPICall(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       bool
	}{
		{"429 Too Many Requests", http.StatusTooManyRequests, true},
		{"500 Internal Server Error", http.StatusInternalServerError, true},
		{"502 Bad Gateway", http.StatusBadGateway, true},
		{"503 Service Unavailable", http.StatusServiceUnavailable, true},
		{"504 Gateway Timeout", http.StatusGatewayTimeout, true},
		{"400 Bad Request", http.StatusBadRequest, false},
		{"401 Unauthorized", http.StatusUnauthorized, false},
		{"404 Not Found", http.StatusNotFound, false},
		{"200 OK", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldRetryAPICall(tt.statusCode)
			if got != tt.want {
				t.Errorf("ShouldRetryAPICall(%d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}

func TestCalculateAPIBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"attempt 0", 0, APIInitialBackoff},
		{"attempt 1", 1, APIInitialBackoff * 2},
		{"attempt 2", 2, APIInitialBackoff * 4},
		{"attempt large", 10, APIMaxBackoff}, // Should cap at max
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateAPIBackoff(tt.attempt)
			if got != tt.want {
				t.Errorf("CalculateAPIBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestWithRetry_Success(t *testing.T) {
	callCount := 0

	result, err := WithRetry(context.Background(), func() (string, error) {
		callCount++
		return "success", nil
	})

	if err != nil {
		t.Errorf("WithRetry() unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("WithRetry() = %v, want %v", result, "success")
	}
	if callCount != 1 {
		t.Errorf("WithRetry() called %d times, want 1", callCount)
	}
}

func TestWithRetry_RetryableError(t *testing.T) {
	fastBackoff(t)
	callCount := 0

	_, err := WithRetry(context.Background(), func() (string, error) {
		callCount++
		return "", &APIError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}
	})

	if err == nil {
		t.Error("WithRetry() expected error, got nil")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("WithRetry() error should wrap *APIError, got %v", err)
	}
	if callCount != MaxAPIRetryAttempts {
		t.Errorf("WithRetry() called %d times, want %d", callCount, MaxAPIRetryAttempts)
	}
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	callCount := 0

	_, err := WithRetry(context.Background(), func() (string, error) {
		callCount++
		return "", &APIError{StatusCode: http.StatusBadRequest, Message: "bad request"}
	})

	if err == nil {
		t.Error("WithRetry() expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("WithRetry() called %d times, want 1 (no retry for non-retryable)", callCount)
	}
}

func TestWithRetry_WrappedAPIErrorIsRetried(t *testing.T) {
	fastBackoff(t)
	callCount := 0

	_, err := WithRetry(context.Background(), func() (string, error) {
		callCount++
		if callCount == 1 {
			return "", fmt.Errorf("upstream: %w", &APIError{StatusCode: http.StatusBadGateway, Message: "bad gateway"})
		}
		return "ok", nil
	})

	if err != nil {
		t.Errorf("WithRetry() unexpected error: %v", err)
	}
	if callCount != 2 {
		t.Errorf("WithRetry() called %d times, want 2", callCount)
	}
}

func TestWithRetry_NonAPIError(t *testing.T) {
	callCount := 0

	_, err := WithRetry(context.Background(), func() (string, error) {
		callCount++
		return "", errors.New("some other error")
	})

	if err == nil {
		t.Error("WithRetry() expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("WithRetry() called %d times, want 1 (no retry for non-API error)", callCount)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(ctx, func() (string, error) {
		return "success", nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("WithRetry() error = %v, want context.Canceled", err)
	}
}

func TestWithRetry_SuccessAfterRetry(t *testing.T) {
	fastBackoff(t)
	callCount := 0

	result, err := WithRetry(context.Background(), func() (string, error) {
		callCount++
		if callCount < 2 {
			return "", &APIError{StatusCode: http.StatusTooManyRequests, Message: "rate limited"}
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("WithRetry() unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("WithRetry() = %v, want %v", result, "success")
	}
	if callCount != 2 {
		t.Errorf("WithRetry() called %d times, want 2", callCount)
	}
}

func TestWithStreamRetry_RetriesBeforeStream(t *testing.T) {
	fastBackoff(t)
	callCount := 0

	var chunks []string
	var final *ChatResponse
	err := WithStreamRetry(context.Background(), func() (*http.Response, error) {
		callCount++
		if callCount == 1 {
			return nil, &APIError{StatusCode: http.StatusServiceUnavailable, Message: "unavailable"}
		}
		body := "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n"
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	}, func(content string) {
		chunks = append(chunks, content)
	}, func(resp *ChatResponse) {
		final = resp
	})

	if err != nil {
		t.Fatalf("WithStreamRetry() unexpected error: %v", err)
	}
	if callCount != 2 {
		t.Errorf("WithStreamRetry() called %d times, want 2", callCount)
	}
	if len(chunks) != 1 || chunks[0] != "hi" {
		t.Errorf("chunks = %v, want [hi]", chunks)
	}
	if final == nil || final.GetContent() != "hi" {
		t.Errorf("final response = %+v", final)
	}
}

func TestWithStreamRetry_NonRetryableError(t *testing.T) {
	callCount := 0

	err := WithStreamRetry(context.Background(), func() (*http.Response, error) {
		callCount++
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "unauthorized"}
	}, nil, nil)

	if err == nil {
		t.Error("WithStreamRetry() expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("WithStreamRetry() called %d times, want 1", callCount)
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		StatusCode: 429,
		Message:    "rate limited",
	}

	if got := err.Error(); got != "rate limited" {
		t.Errorf("APIError.Error() = %v, want %v", got, "rate limited")
	}
}
