package interp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/quocvuong92/chatybot/internal/api"
	"github.com/quocvuong92/chatybot/internal/config"
	"github.com/quocvuong92/chatybot/internal/constants"
	"github.com/quocvuong92/chatybot/internal/logging"
)

var fenceRe = regexp.MustCompile("```[^\\n`]*\\n([\\s\\S]*?)```")

// ExtractCode returns the bodies of all fenced code blocks in text, joined by
// blank lines. It returns "" when text has no fenced block.
func ExtractCode(text string) string {
	matches := fenceRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.TrimRight(m[1], "\n"))
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// buildPrompt prepends the code-only instruction and loaded files to text
func (in *Interpreter) buildPrompt(text string) string {
	var sb strings.Builder
	if in.state.codeOnly {
		sb.WriteString(constants.CodeOnlyInstruction)
	}
	for i, bank := range in.state.banks {
		if bank.empty() {
			continue
		}
		fmt.Fprintf(&sb, "File bank %d (%s):\n%s\n\n", i+1, bank.path, bank.content)
	}
	if !in.state.buffer.empty() {
		fmt.Fprintf(&sb, "File:\n%s\n\n", in.state.buffer.content)
	}
	sb.WriteString(text)
	return sb.String()
}

// systemMessage returns the system message to send to entry's model
func (in *Interpreter) systemMessage(entry config.ModelEntry) string {
	// Gemma chat templates reject the system role
	if strings.Contains(strings.ToLower(entry.Name), "gemma") {
		return ""
	}
	return in.state.system
}

// client returns the cached client for entry's alias
func (in *Interpreter) client(entry config.ModelEntry) (api.ModelClient, error) {
	if c, ok := in.clients[entry.Alias]; ok {
		return c, nil
	}
	c, err := in.newClient(entry)
	if err != nil {
		return nil, err
	}
	in.clients[entry.Alias] = c
	return c, nil
}

// sendChat sends one utterance to the active model. On success the response
// is shown and remembered, and the file buffer is cleared. On failure the
// buffer is kept so the message can be retried.
func (in *Interpreter) sendChat(ctx context.Context, text string) error {
	entry := in.activeEntry()
	c, err := in.client(entry)
	if err != nil {
		return wrapError(APIError, err, "")
	}

	temperature, maxTokens := in.effectiveParams(entry)
	req := api.CompletionRequest{
		Model:       entry.Name,
		System:      in.systemMessage(entry),
		Prompt:      in.buildPrompt(text),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopK:        entry.TopK,
	}
	in.log.Debug("sending chat", logging.Fields{
		"alias":      entry.Alias,
		"model":      entry.Name,
		"stream":     in.state.stream,
		"prompt_len": len(req.Prompt),
	})

	in.out.Busy("Thinking...")
	var content string
	if in.state.stream {
		content, err = c.CompleteStream(ctx, req, in.out.Chunk)
	} else {
		content, err = c.Complete(ctx, req)
	}
	in.out.Idle()
	if err != nil {
		return wrapError(APIError, err, "")
	}

	in.out.Completion(content)
	in.state.lastCompletion = content
	in.state.buffer = fileSlot{}

	if in.transcript.Active() {
		if err := in.transcript.Append(text, content); err != nil {
			in.out.Warn("failed to write transcript: " + err.Error())
		}
	}
	return nil
}
