package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultMaxBodySize caps logged request and response bodies
const defaultMaxBodySize = 10000

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"api-key":       true,
	"x-api-key":     true,
	"cookie":        true,
	"set-cookie":    true,
}

var sensitiveKeys = map[string]bool{
	"apikey":        true,
	"password":      true,
	"secret":        true,
	"token":         true,
	"authorization": true,
}

var sensitiveSuffixes = []string{"_key", "_token", "_secret"}

// HTTPLogger writes model API traffic to a Logger at debug level
type HTTPLogger struct {
	logger      *Logger
	maxBodySize int
}

// NewHTTPLogger creates a new HTTP logger
func NewHTTPLogger(logger *Logger) *HTTPLogger {
	return &HTTPLogger{logger: logger, maxBodySize: defaultMaxBodySize}
}

// LogRequest logs an outgoing request with secrets redacted
func (h *HTTPLogger) LogRequest(req *http.Request, body []byte) {
	fields := Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": redactHeaders(req.Header),
	}
	h.addBody(fields, body, true)
	h.logger.Debug("HTTP Request", fields)
}

// LogResponse logs a response; body is nil for event streams
func (h *HTTPLogger) LogResponse(resp *http.Response, body []byte, duration time.Duration) {
	fields := Fields{
		"status":      resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
		"streaming":   isStreamingResponse(resp),
	}
	h.addBody(fields, body, false)
	h.logger.Debug("HTTP Response", fields)
}

// LogError logs a transport failure
func (h *HTTPLogger) LogError(err error, req *http.Request) {
	h.logger.Error("HTTP Error", err, Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})
}

func (h *HTTPLogger) addBody(fields Fields, body []byte, redact bool) {
	if len(body) == 0 {
		return
	}
	fields["body_size"] = len(body)

	var parsed interface{}
	if json.Valid(body) && json.Unmarshal(body, &parsed) == nil {
		if redact {
			parsed = redactSensitiveFields(parsed)
		}
		fields["body"] = parsed
		return
	}
	fields["body"] = truncateBody(body, h.maxBodySize)
}

// LoggingRoundTripper wraps an http.RoundTripper with request/response logging
type LoggingRoundTripper struct {
	wrapped http.RoundTripper
	logger  *HTTPLogger
}

// NewLoggingRoundTripper creates a new logging round tripper
func NewLoggingRoundTripper(wrapped http.RoundTripper, logger *HTTPLogger) *LoggingRoundTripper {
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	return &LoggingRoundTripper{wrapped: wrapped, logger: logger}
}

// RoundTrip implements http.RoundTripper
func (rt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !rt.logger.logger.Enabled(LevelDebug) {
		return rt.wrapped.RoundTrip(req)
	}
	start := time.Now()

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}
	rt.logger.LogRequest(req, reqBody)

	resp, err := rt.wrapped.RoundTrip(req)
	if err != nil {
		rt.logger.LogError(err, req)
		return nil, err
	}

	// Event streams are consumed incrementally; reading them here would block
	if isStreamingResponse(resp) {
		rt.logger.LogResponse(resp, nil, time.Since(start))
		return resp, nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	rt.logger.LogResponse(resp, respBody, time.Since(start))
	return resp, nil
}

func redactHeaders(header http.Header) map[string]string {
	headers := make(map[string]string, len(header))
	for k, v := range header {
		switch {
		case sensitiveHeaders[strings.ToLower(k)]:
			headers[k] = "[REDACTED]"
		case len(v) > 0:
			headers[k] = v[0]
		}
	}
	return headers
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

func truncateBody(body []byte, maxSize int) string {
	if len(body) <= maxSize {
		return string(body)
	}
	return string(body[:maxSize]) + "...[truncated]"
}

func isStreamingResponse(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream")
}

// redactSensitiveFields walks decoded JSON and masks values under sensitive keys
func redactSensitiveFields(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			if isSensitiveKey(k) {
				result[k] = "[REDACTED]"
				continue
			}
			result[k] = redactSensitiveFields(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = redactSensitiveFields(item)
		}
		return result
	default:
		return data
	}
}
