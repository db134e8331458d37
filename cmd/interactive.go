package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"

	"github.com/quocvuong92/chatybot/internal/constants"
	"github.com/quocvuong92/chatybot/internal/interp"
)

// InteractiveSession connects the prompt to an interpreter
type InteractiveSession struct {
	app *App
	in  *interp.Interpreter
	ctx context.Context
}

// completer provides auto-completion suggestions for slash commands
func (s *InteractiveSession) completer(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - istrings.RuneCountInString(w)

	suggestions := suggest(d.TextBeforeCursor(), s.app.cfg.Aliases(), s.in.State().Model)
	return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
}

// suggest returns completion candidates for the word being typed in text
func suggest(text string, aliases []string, current string) []prompt.Suggest {
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	fields := strings.Fields(strings.ToLower(text))
	word := len(fields) - 1
	if strings.HasSuffix(text, " ") {
		word++
	}

	if word == 0 {
		summaries := interp.CommandSummaries()
		var suggestions []prompt.Suggest
		for _, name := range interp.CommandNames() {
			suggestions = append(suggestions, prompt.Suggest{Text: name, Description: summaries[name]})
		}
		return suggestions
	}

	command := fields[0]
	switch {
	case word == 1 && command == "/model":
		var suggestions []prompt.Suggest
		for _, alias := range aliases {
			desc := ""
			if alias == current {
				desc = "(current)"
			}
			suggestions = append(suggestions, prompt.Suggest{Text: alias, Description: desc})
		}
		return suggestions

	case word == 1 && command == "/logging":
		return []prompt.Suggest{
			{Text: "start", Description: "Start writing a transcript"},
			{Text: "end", Description: "Stop the transcript"},
		}

	case word == 1 && command == "/system":
		return []prompt.Suggest{{Text: "clear", Description: "Reset to the configured system message"}}

	case word == 1 && command == "/showfile":
		return []prompt.Suggest{{Text: "all", Description: "Show the whole buffer"}}

	case word == 1 && strings.HasPrefix(command, "/filebank"):
		return []prompt.Suggest{
			{Text: "clear", Description: "Empty this bank"},
			{Text: "show", Description: "Preview this bank"},
		}

	case word == 2 && strings.HasPrefix(command, "/filebank") && fields[1] == "show":
		return []prompt.Suggest{{Text: "all", Description: "Show the whole bank"}}
	}
	return nil
}

// runInteractive starts the REPL and feeds every line to the interpreter
// until /quit, Ctrl+C or Ctrl+D.
func (app *App) runInteractive(ctx context.Context, in *interp.Interpreter) {
	st := in.State()
	fmt.Fprintln(app.out, "chatybot - Interactive Mode")
	fmt.Fprintf(app.out, "Model: %s (alias: %s)\n", st.ModelName, st.Model)
	if app.cfg.SourcePath != "" {
		fmt.Fprintf(app.out, "Config: %s\n", app.cfg.SourcePath)
	}
	fmt.Fprintln(app.out, "Type /help for commands, Ctrl+C or Ctrl+D to quit")
	fmt.Fprintf(app.out, "Use /multiline for multi-line messages, ending with %s\n", constants.MultilineTerminator)
	fmt.Fprintln(app.out)

	session := &InteractiveSession{app: app, in: in, ctx: ctx}

	p := prompt.New(
		session.executor,
		prompt.WithCompleter(session.completer),
		prompt.WithPrefix(constants.DefaultPromptPrefix),
		prompt.WithTitle(constants.AppName),
		prompt.WithPrefixTextColor(prompt.Green),
		prompt.WithSuggestionBGColor(prompt.DarkBlue),
		prompt.WithSuggestionTextColor(prompt.White),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithDescriptionBGColor(prompt.DarkBlue),
		prompt.WithDescriptionTextColor(prompt.LightGray),
		prompt.WithSelectedDescriptionBGColor(prompt.Cyan),
		prompt.WithSelectedDescriptionTextColor(prompt.Black),
		prompt.WithScrollbarBGColor(prompt.DarkGray),
		prompt.WithScrollbarThumbColor(prompt.White),
		prompt.WithMaxSuggestion(15),
		prompt.WithCompletionOnDown(),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return session.in.Done()
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(p *prompt.Prompt) bool {
				fmt.Fprintln(app.out)
				session.quit()
				return false
			},
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn: func(p *prompt.Prompt) bool {
				if p.Buffer().Text() == "" {
					fmt.Fprintln(app.out)
					session.quit()
				}
				return false
			},
		}),
	)

	p.Run()
}

// executor handles each line entered at the prompt
func (s *InteractiveSession) executor(input string) {
	if s.in.Done() {
		return
	}
	s.in.Feed(s.ctx, input)
	if s.in.Pending() > 0 {
		fmt.Fprint(s.app.out, "... ")
	}
}

// quit ends the session the same way /quit does, even mid multiline message
func (s *InteractiveSession) quit() {
	if s.in.Done() {
		return
	}
	_ = s.in.Exec(s.ctx, "/quit", interp.ModeInteractive)
}
