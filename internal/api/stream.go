package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/quocvuong92/chatybot/internal/logging"
)

// SSEProcessor handles Server-Sent Events stream processing
type SSEProcessor struct {
	reader         *bufio.Reader
	contentBuilder strings.Builder
	finalUsage     Usage
	responseID     string
	finishReason   string
}

// NewSSEProcessor creates a new SSE stream processor
func NewSSEProcessor(r io.Reader) *SSEProcessor {
	return &SSEProcessor{reader: bufio.NewReader(r)}
}

// Process reads the SSE stream, calling onChunk for each content chunk,
// until the stream ends or a [DONE] marker arrives
func (p *SSEProcessor) Process(ctx context.Context, onChunk func(content string)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return nil
			}
			p.handleData(data, onChunk)
		}

		if eof {
			return nil
		}
	}
}

func (p *SSEProcessor) handleData(data string, onChunk func(content string)) {
	var chunk ChatResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		logging.DefaultLogger.Debug("skipping malformed stream chunk", logging.Fields{"error": err.Error(), "data": data})
		return
	}

	if chunk.ID != "" {
		p.responseID = chunk.ID
	}

	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			p.contentBuilder.WriteString(choice.Delta.Content)
			if onChunk != nil {
				onChunk(choice.Delta.Content)
			}
		}
		if choice.FinishReason != "" {
			p.finishReason = choice.FinishReason
		}
	}

	// Usage arrives on the final chunk when the server reports it
	if chunk.Usage.TotalTokens > 0 {
		p.finalUsage = chunk.Usage
	}
}

// BuildResponse constructs the final ChatResponse from accumulated data
func (p *SSEProcessor) BuildResponse() *ChatResponse {
	finishReason := p.finishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	return &ChatResponse{
		ID: p.responseID,
		Choices: []Choice{
			{
				Index: 0,
				Message: Message{
					Role:    "assistant",
					Content: p.contentBuilder.String(),
				},
				FinishReason: finishReason,
			},
		},
		Usage: p.finalUsage,
	}
}

// GetContent returns the accumulated content
func (p *SSEProcessor) GetContent() string {
	return p.contentBuilder.String()
}
