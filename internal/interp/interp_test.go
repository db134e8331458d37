package interp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/chatybot/internal/config"
	"github.com/quocvuong92/chatybot/internal/constants"
	"github.com/quocvuong92/chatybot/internal/logging"
)

func TestNewDefaults(t *testing.T) {
	in, err := New(Options{
		Config:    newFakeConfig(testModels()...),
		Presenter: &recorder{},
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)

	st := in.State()
	assert.Equal(t, "gpt4", st.Model)
	assert.Equal(t, constants.DefaultSystemMessage, st.SystemMessage)
	assert.False(t, st.Stream)
	assert.False(t, st.Logging)
	assert.Empty(t, st.Variables)
}

func TestNewOptions(t *testing.T) {
	in, err := New(Options{
		Config:        newFakeConfig(testModels()...),
		Presenter:     &recorder{},
		Model:         "claude",
		SystemMessage: "You are a pirate.",
		Stream:        true,
	})
	require.NoError(t, err)

	st := in.State()
	assert.Equal(t, "claude", st.Model)
	assert.Equal(t, "You are a pirate.", st.SystemMessage)
	assert.True(t, st.Stream)

	require.NoError(t, in.Exec(context.Background(), "/system clear", ModeInteractive))
	assert.Equal(t, "You are a pirate.", in.State().SystemMessage)
}

func TestNewErrors(t *testing.T) {
	_, err := New(Options{Presenter: &recorder{}})
	assert.Error(t, err)

	_, err = New(Options{Config: newFakeConfig(testModels()...)})
	assert.Error(t, err)

	_, err = New(Options{Config: newFakeConfig(), Presenter: &recorder{}})
	assert.ErrorIs(t, err, UnknownModel)

	_, err = New(Options{Config: newFakeConfig(testModels()...), Presenter: &recorder{}, Model: "llama"})
	assert.ErrorIs(t, err, UnknownModel)
}

func TestConditionalLoadsFile(t *testing.T) {
	h := newHarness(t)
	h.files.contents["bot_requirements.txt"] = "X"

	h.feed(`set project = "bot"`, "if ${project} then /file bot_requirements.txt")
	require.Empty(t, h.out.errs)
	assert.Equal(t, "X", h.in.State().Buffer)
}

func TestConditionalExecutesOnlyWhenTruthy(t *testing.T) {
	values := map[string]bool{
		"yes":   true,
		"bot":   true,
		"":      false,
		"false": false,
		"0":     false,
		"Off":   false,
	}
	for value, truthy := range values {
		h := newHarness(t)
		h.in.Vars().Set("x", value)

		h.feed("if ${x} then /codeonly")
		assert.Equal(t, truthy, h.in.State().CodeOnly, "if %q", value)

		h.feed("/codeoff", "if not ${x} then /codeonly")
		assert.Equal(t, !truthy, h.in.State().CodeOnly, "if not %q", value)
	}

	h := newHarness(t)
	h.feed("if ${undefined} then /codeonly")
	assert.False(t, h.in.State().CodeOnly)
	h.feed("if not ${undefined} then /codeonly")
	assert.True(t, h.in.State().CodeOnly)
}

func TestAssignmentExpandsAtDefinition(t *testing.T) {
	h := newHarness(t)

	h.feed("set lang = go", "set greeting = hello ${lang}", "set lang = rust")
	assert.Equal(t, "hello go", h.in.Vars().Get("greeting"))
	assert.Equal(t, "rust", h.in.State().Variables["lang"])
}

func TestExecReturnsErrorsUnreported(t *testing.T) {
	h := newHarness(t)

	err := h.in.Exec(context.Background(), "/frobnicate", ModeScript)
	assert.ErrorIs(t, err, UnknownCommand)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, UnknownCommand, kind)
	assert.Empty(t, h.out.errs)

	err = h.in.Exec(context.Background(), "plain words", ModeScript)
	assert.ErrorIs(t, err, ParseError)

	require.NoError(t, h.in.Exec(context.Background(), "plain words", ModeInteractive))
	assert.Equal(t, "plain words", h.client.lastRequest(t).Prompt)
}

func TestMultilineAccumulatesUntilTerminator(t *testing.T) {
	h := newHarness(t)

	h.feed("/multiline", "", "first line", "  set x = 1", "", "/stream", "third ${name}")
	assert.Empty(t, h.client.requests)
	assert.Equal(t, 5, h.in.Pending())
	assert.False(t, h.in.State().Stream)

	h.in.Vars().Set("name", "line")
	h.feed(" ;; ")
	require.Empty(t, h.out.errs)
	assert.Equal(t, "first line\n  set x = 1\n\n/stream\nthird line", h.client.lastRequest(t).Prompt)
	assert.Equal(t, 0, h.in.Pending())
	_, defined := h.in.Vars().Lookup("x")
	assert.False(t, defined)
}

func TestMultilineSlashCommandsRunWhenIdle(t *testing.T) {
	h := newHarness(t)

	h.feed("/multiline", "/codeonly", ";;")
	assert.True(t, h.in.State().CodeOnly)
	assert.Empty(t, h.client.requests)

	h.feed("/multiline", "back to single line")
	assert.False(t, h.in.State().Multiline)
	assert.Equal(t, constants.CodeOnlyInstruction+"back to single line", h.client.lastRequest(t).Prompt)
}

func TestFeedReportsAndContinues(t *testing.T) {
	h := newHarness(t)
	h.client.err = errors.New("connection refused")

	assert.True(t, h.in.Feed(context.Background(), "hello"))
	h.requireKind(t, APIError)

	assert.True(t, h.in.Feed(context.Background(), "wait -1"))
	h.requireKind(t, ParseError)

	assert.False(t, h.in.Feed(context.Background(), "/quit"))
}

func TestFeedKeywordProseIsChat(t *testing.T) {
	h := newHarness(t)
	h.feed("if it rains then what should I wear?", "wait what")

	require.Empty(t, h.out.errs)
	require.Len(t, h.client.requests, 2)
	assert.Equal(t, "if it rains then what should I wear?", h.client.requests[0].Prompt)
	assert.Equal(t, "wait what", h.client.requests[1].Prompt)
}

func TestErrorSourceIsLineAsTyped(t *testing.T) {
	h := newHarness(t)
	h.feed("set t = 9", "/temp ${t}")

	err := h.lastErr(t)
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "/temp ${t}", ie.Source)
	assert.True(t, strings.HasPrefix(err.Error(), "/temp ${t}: "), err.Error())

	h.feed("  /frobnicate now  ")
	require.ErrorAs(t, h.lastErr(t), &ie)
	assert.Equal(t, "/frobnicate now", ie.Source)
}

func TestErrorFormatting(t *testing.T) {
	err := newError(InvalidArgument, "temperature must be between %.1f and %.1f", 0.0, 2.0)
	assert.Equal(t, "temperature must be between 0.0 and 2.0", err.Error())

	located := withSource(err, "plan.txt:3")
	assert.Equal(t, "plan.txt:3: temperature must be between 0.0 and 2.0", located.Error())
	assert.Empty(t, err.Source)
	assert.ErrorIs(t, located, InvalidArgument)
	assert.NotErrorIs(t, located, ParseError)

	plain := withSource(config.ErrNoModels, "x:1")
	assert.ErrorIs(t, plain, config.ErrNoModels)
	_, ok := KindOf(plain)
	assert.False(t, ok)

	assert.Equal(t, "cyclic script inclusion", CyclicScriptInclusion.Error())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
