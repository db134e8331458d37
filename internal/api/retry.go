package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Retry configuration
const (
	MaxAPIRetryAttempts = 3
	BackoffMultiplier   = 2.0
)

// Backoff bounds; variables so tests can shorten them
var (
	APIInitialBackoff = 500 * time.Millisecond
	APIMaxBackoff     = 5 * time.Second
)

// RetryableStatusCodes are HTTP status codes that should trigger a retry
var RetryableStatusCodes = []int{
	http.StatusTooManyRequests,     // 429 - Rate limited
	http.StatusServiceUnavailable,  // 503 - Service unavailable
	http.StatusGatewayTimeout,      // 504 - Gateway timeout
	http.StatusBadGateway,          // 502 - Bad gateway
	http.StatusInternalServerError, // 500 - Internal server error (transient)
}

// ShouldRetryAPICall checks if the error status code indicates we should retry the API call
func ShouldRetryAPICall(statusCode int) bool {
	for _, code := range RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// CalculateAPIBackoff returns the backoff duration for a given attempt number
func CalculateAPIBackoff(attempt int) time.Duration {
	backoff := APIInitialBackoff
	for i := 0; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * BackoffMultiplier)
		if backoff > APIMaxBackoff {
			backoff = APIMaxBackoff
			break
		}
	}
	return backoff
}

// isRetryable reports whether err is an APIError with a transient status
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ShouldRetryAPICall(apiErr.StatusCode)
	}
	return false
}

// waitBackoff sleeps before the next attempt unless ctx ends first
func waitBackoff(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("operation cancelled: %w", ctx.Err())
	case <-time.After(CalculateAPIBackoff(attempt)):
		return nil
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc[T any] func() (T, error)

// WithRetry executes a function with retry logic for transient failures.
// It retries on retryable HTTP status codes (429, 500, 502, 503, 504)
// with exponential backoff between attempts.
func WithRetry[T any](ctx context.Context, fn RetryableFunc[T]) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt < MaxAPIRetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("operation cancelled: %w", err)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}

		if attempt < MaxAPIRetryAttempts-1 {
			if err := waitBackoff(ctx, attempt); err != nil {
				return zero, err
			}
		}
	}

	return zero, fmt.Errorf("max retry attempts (%d) exceeded: %w", MaxAPIRetryAttempts, lastErr)
}

// StreamRetryableFunc is a function that returns an HTTP response for streaming.
// The caller is responsible for closing the response body on success.
type StreamRetryableFunc func() (*http.Response, error)

// WithStreamRetry executes a streaming request with retry logic for transient failures.
// It retries the initial connection on retryable HTTP status codes, then processes
// the SSE stream using the provided callbacks. Once streaming starts, retries are
// not attempted (partial responses cannot be safely retried).
func WithStreamRetry(ctx context.Context, fn StreamRetryableFunc, onChunk func(content string), onDone func(resp *ChatResponse)) error {
	var lastErr error

	for attempt := 0; attempt < MaxAPIRetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("operation cancelled: %w", err)
		}

		resp, err := fn()
		if err == nil {
			defer func() { _ = resp.Body.Close() }()

			processor := NewSSEProcessor(resp.Body)
			if err := processor.Process(ctx, onChunk); err != nil {
				return fmt.Errorf("failed to process stream: %w", err)
			}

			if onDone != nil {
				onDone(processor.BuildResponse())
			}
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if attempt < MaxAPIRetryAttempts-1 {
			if err := waitBackoff(ctx, attempt); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", MaxAPIRetryAttempts, lastErr)
}
