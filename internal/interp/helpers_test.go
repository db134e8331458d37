package interp

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/chatybot/internal/api"
	"github.com/quocvuong92/chatybot/internal/config"
	"github.com/quocvuong92/chatybot/internal/files"
	"github.com/quocvuong92/chatybot/internal/logging"
	"github.com/quocvuong92/chatybot/internal/transcript"
)

func floatPtr(f float64) *float64 { return &f }

// fakeConfig is an in-memory model registry
type fakeConfig struct {
	order  []string
	models map[string]config.ModelEntry
}

func newFakeConfig(entries ...config.ModelEntry) *fakeConfig {
	c := &fakeConfig{models: make(map[string]config.ModelEntry)}
	for _, e := range entries {
		c.order = append(c.order, e.Alias)
		c.models[e.Alias] = e
	}
	return c
}

func (c *fakeConfig) Lookup(alias string) (config.ModelEntry, bool) {
	e, ok := c.models[alias]
	return e, ok
}

func (c *fakeConfig) Aliases() []string { return c.order }

// memFiles is an in-memory file store
type memFiles struct {
	contents map[string]string
	errs     map[string]error
	writes   map[string]string
}

func newMemFiles() *memFiles {
	return &memFiles{
		contents: make(map[string]string),
		errs:     make(map[string]error),
		writes:   make(map[string]string),
	}
}

func (m *memFiles) ReadFile(path string, limit int) (files.Content, error) {
	if err, ok := m.errs[path]; ok {
		return files.Content{}, err
	}
	text, ok := m.contents[path]
	if !ok {
		return files.Content{}, fmt.Errorf("%w: %s", files.ErrNotFound, path)
	}
	c := files.Content{Path: path, Size: int64(len(text)), Text: text}
	if limit > 0 && len(text) > limit {
		c.Text = text[:limit]
		c.Truncated = true
	}
	return c, nil
}

func (m *memFiles) WriteFile(path, content string) error {
	if err, ok := m.errs[path]; ok {
		return err
	}
	m.writes[path] = content
	return nil
}

// fakeTranscript records exchanges in memory
type fakeTranscript struct {
	active    bool
	starts    int
	stops     int
	entries   [][2]string
	startErr  error
	appendErr error
}

func (f *fakeTranscript) Start() (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.active = true
	f.starts++
	return "chatybot.log.20260101_120000", nil
}

func (f *fakeTranscript) Stop() error {
	f.active = false
	f.stops++
	return nil
}

func (f *fakeTranscript) Active() bool { return f.active }

func (f *fakeTranscript) Append(prompt, response string) error {
	if !f.active {
		return transcript.ErrNotActive
	}
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, [2]string{prompt, response})
	return nil
}

// fakeClient answers every request with a fixed response
type fakeClient struct {
	response string
	chunks   []string
	err      error
	requests []api.CompletionRequest
	streamed int
	closed   bool
}

func (c *fakeClient) Complete(_ context.Context, req api.CompletionRequest) (string, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func (c *fakeClient) CompleteStream(_ context.Context, req api.CompletionRequest, onChunk func(string)) (string, error) {
	c.requests = append(c.requests, req)
	c.streamed++
	if c.err != nil {
		return "", c.err
	}
	for _, chunk := range c.chunks {
		onChunk(chunk)
	}
	return strings.Join(c.chunks, ""), nil
}

func (c *fakeClient) Close() { c.closed = true }

func (c *fakeClient) lastRequest(t *testing.T) api.CompletionRequest {
	t.Helper()
	require.NotEmpty(t, c.requests, "no request was sent")
	return c.requests[len(c.requests)-1]
}

// recorder is a Presenter that keeps everything it is asked to show
type recorder struct {
	printed     []string
	errs        []error
	warns       []string
	tables      [][][]string
	chunks      []string
	completions []string
	busy        int
	idle        int
}

func (r *recorder) Print(text string) { r.printed = append(r.printed, text) }
func (r *recorder) Error(err error)   { r.errs = append(r.errs, err) }
func (r *recorder) Warn(msg string)   { r.warns = append(r.warns, msg) }
func (r *recorder) Table(headers []string, rows [][]string) {
	r.tables = append(r.tables, rows)
}
func (r *recorder) Busy(string)               { r.busy++ }
func (r *recorder) Chunk(content string)      { r.chunks = append(r.chunks, content) }
func (r *recorder) Idle()                     { r.idle++ }
func (r *recorder) Completion(content string) { r.completions = append(r.completions, content) }

func (r *recorder) lastPrinted() string {
	if len(r.printed) == 0 {
		return ""
	}
	return r.printed[len(r.printed)-1]
}

// harness wires an interpreter to in-memory collaborators
type harness struct {
	in       *Interpreter
	cfg      *fakeConfig
	files    *memFiles
	log      *fakeTranscript
	client   *fakeClient
	out      *recorder
	sleeps   []time.Duration
	built    []string
	buildErr error
}

func testModels() []config.ModelEntry {
	return []config.ModelEntry{
		{Alias: "gpt4", Name: "gpt-4o", APIKey: "OPENAI_API_KEY", Temperature: floatPtr(0.5)},
		{Alias: "claude", Name: "claude-3-5-sonnet", BaseURL: "https://api.example.com/v1", APIKey: "CLAUDE_KEY", MaxTokens: 1024},
		{Alias: "gemma", Name: "gemma-2-9b-it", BaseURL: "http://localhost:11434/v1", APIKey: "OLLAMA_KEY", TopK: 40},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cfg:    newFakeConfig(testModels()...),
		files:  newMemFiles(),
		log:    &fakeTranscript{},
		client: &fakeClient{response: "Hello from the model."},
		out:    &recorder{},
	}
	in, err := New(Options{
		Config:     h.cfg,
		Files:      h.files,
		Transcript: h.log,
		Presenter:  h.out,
		Logger:     logging.Discard(),
		NewClient: func(entry config.ModelEntry) (api.ModelClient, error) {
			if h.buildErr != nil {
				return nil, h.buildErr
			}
			h.built = append(h.built, entry.Alias)
			return h.client, nil
		},
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return ctx.Err()
		},
	})
	require.NoError(t, err)
	h.in = in
	return h
}

// feed sends interactive lines
func (h *harness) feed(lines ...string) {
	for _, line := range lines {
		h.in.Feed(context.Background(), line)
	}
}

// lastErr returns the most recently reported error
func (h *harness) lastErr(t *testing.T) error {
	t.Helper()
	require.NotEmpty(t, h.out.errs, "no error was reported")
	return h.out.errs[len(h.out.errs)-1]
}

func (h *harness) requireKind(t *testing.T, kind Kind) {
	t.Helper()
	err := h.lastErr(t)
	require.ErrorIs(t, err, kind, "got %v", err)
}
