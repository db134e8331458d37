package interp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/quocvuong92/chatybot/internal/constants"
	"github.com/quocvuong92/chatybot/internal/files"
	"github.com/quocvuong92/chatybot/internal/logging"
)

// command is one slash command. Run returns text to show the user.
type command struct {
	Name    string
	Aliases []string
	Usage   string
	Summary string
	Run     func(ctx context.Context, in *Interpreter, args string) (string, error)
}

// commandList is the full command surface in /help order
func commandList() []*command {
	cmds := []*command{
		{Name: "help", Aliases: []string{"h"}, Usage: "/help", Summary: "Show this help message", Run: cmdHelp},
		{Name: "model", Usage: "/model [alias]", Summary: "Show the active model or switch to another alias", Run: cmdModel},
		{Name: "listmodels", Usage: "/listmodels", Summary: "List configured models", Run: cmdListModels},
		{Name: "file", Usage: "/file <path>", Summary: "Load a file into the buffer for the next message", Run: cmdFile},
	}
	for i := 1; i <= constants.FileBankCount; i++ {
		bank := i
		cmds = append(cmds, &command{
			Name:    fmt.Sprintf("filebank%d", bank),
			Usage:   fmt.Sprintf("/filebank%d <path|clear|show [all]>", bank),
			Summary: fmt.Sprintf("Load, clear or preview file bank %d", bank),
			Run: func(ctx context.Context, in *Interpreter, args string) (string, error) {
				return cmdFileBank(in, bank, args)
			},
		})
	}
	cmds = append(cmds,
		&command{Name: "showfile", Usage: "/showfile [all]", Summary: "Preview the file buffer", Run: cmdShowFile},
		&command{Name: "clearfile", Usage: "/clearfile", Summary: "Empty the file buffer", Run: cmdClearFile},
		&command{Name: "prompt", Usage: "/prompt <path>", Summary: "Send the contents of a file as a message", Run: cmdPrompt},
		&command{Name: "system", Usage: "/system [message|clear]", Summary: "Show, set or reset the system message", Run: cmdSystem},
		&command{Name: "temp", Usage: "/temp [0.0-2.0]", Summary: "Show or set the temperature for the active model", Run: cmdTemp},
		&command{Name: "maxtokens", Usage: "/maxtokens [n]", Summary: "Show or set max tokens for the active model", Run: cmdMaxTokens},
		&command{Name: "stream", Usage: "/stream", Summary: "Toggle streaming responses", Run: cmdStream},
		&command{Name: "codeonly", Usage: "/codeonly", Summary: "Ask the model for code only", Run: cmdCodeOnly},
		&command{Name: "codeoff", Usage: "/codeoff", Summary: "Turn code-only mode off", Run: cmdCodeOff},
		&command{Name: "multiline", Usage: "/multiline", Summary: "Toggle multiline input (end with " + constants.MultilineTerminator + ")", Run: cmdMultiline},
		&command{Name: "logging", Usage: "/logging <start|end>", Summary: "Start or stop the session transcript", Run: cmdLogging},
		&command{Name: "save", Usage: "/save <file>", Summary: "Save the last response to a file", Run: cmdSave},
		&command{Name: "script", Usage: "/script <path>", Summary: "Run a script file", Run: cmdScript},
		&command{Name: "vars", Usage: "/vars", Summary: "List variables", Run: cmdVars},
		&command{Name: "quit", Aliases: []string{"exit", "q"}, Usage: "/quit", Summary: "Exit the session", Run: cmdQuit},
	)
	return cmds
}

// buildCommands indexes commandList by name and alias
func buildCommands() map[string]*command {
	table := make(map[string]*command)
	for _, c := range commandList() {
		table[c.Name] = c
		for _, alias := range c.Aliases {
			table[alias] = c
		}
	}
	return table
}

// CommandNames returns every command name and alias with its slash, for completion
func CommandNames() []string {
	var names []string
	for _, c := range commandList() {
		names = append(names, "/"+c.Name)
		for _, alias := range c.Aliases {
			names = append(names, "/"+alias)
		}
	}
	return names
}

// CommandSummaries maps "/name" to its one-line summary
func CommandSummaries() map[string]string {
	summaries := make(map[string]string)
	for _, c := range commandList() {
		summaries["/"+c.Name] = c.Summary
		for _, alias := range c.Aliases {
			summaries["/"+alias] = c.Summary
		}
	}
	return summaries
}

func (in *Interpreter) dispatch(ctx context.Context, name, args string) (string, error) {
	c, ok := in.commands[name]
	if !ok {
		return "", newError(UnknownCommand, "unknown command '/%s'. Type /help for available commands", name)
	}
	return c.Run(ctx, in, args)
}

func cmdHelp(_ context.Context, _ *Interpreter, _ string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, c := range commandList() {
		fmt.Fprintf(&sb, "  %-36s %s\n", c.Usage, c.Summary)
	}
	sb.WriteString("\nDirectives:\n")
	sb.WriteString("  set <name> = <value>                 Define a variable, used as ${name}\n")
	sb.WriteString("  if [not] ${name} then <directive>    Run a directive when a variable is truthy\n")
	sb.WriteString("  wait <seconds>                       Pause a script\n")
	sb.WriteString("  chat --> <message>                   Send a message (required in scripts)\n")
	sb.WriteString("  # comment")
	return sb.String(), nil
}

func cmdModel(_ context.Context, in *Interpreter, args string) (string, error) {
	if args == "" {
		entry := in.activeEntry()
		temperature, maxTokens := in.effectiveParams(entry)
		tokens := "default"
		if maxTokens > 0 {
			tokens = strconv.Itoa(maxTokens)
		}
		return fmt.Sprintf("Current model: %s (alias: %s)\n  Temperature: %.2f\n  Max tokens: %s\n  Base URL: %s",
			entry.Name, entry.Alias, temperature, tokens, entry.GetBaseURL()), nil
	}

	alias := args
	entry, ok := in.cfg.Lookup(alias)
	if !ok {
		return "", newError(UnknownModel, "model alias '%s' not found in configuration (available: %s)",
			alias, strings.Join(in.cfg.Aliases(), ", "))
	}
	in.state.model = alias
	in.log.Debug("model switched", logging.Fields{"alias": alias, "model": entry.Name})
	return fmt.Sprintf("Switched to model: %s (alias: %s)", entry.Name, alias), nil
}

func cmdListModels(_ context.Context, in *Interpreter, _ string) (string, error) {
	rows := make([][]string, 0, len(in.cfg.Aliases()))
	for _, alias := range in.cfg.Aliases() {
		entry, _ := in.cfg.Lookup(alias)
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = "Default OpenAI URL"
		}
		marker := " "
		if alias == in.state.model {
			marker = "*"
		}
		rows = append(rows, []string{marker, alias, entry.Name, baseURL})
	}
	in.out.Table([]string{"", "Alias", "Model Name", "Base URL"}, rows)
	return "", nil
}

func cmdFile(_ context.Context, in *Interpreter, args string) (string, error) {
	if args == "" {
		return "", newError(MissingArgument, "usage: /file <path>")
	}
	slot, err := in.loadSlot(unquote(args))
	if err != nil {
		return "", err
	}
	in.state.buffer = slot
	return fmt.Sprintf("File '%s' loaded into buffer.%s", slot.path, truncationNote(slot)), nil
}

func cmdFileBank(in *Interpreter, bank int, args string) (string, error) {
	if args == "" {
		return "", newError(MissingArgument, "usage: /filebank%d <path|clear|show [all]>", bank)
	}
	slot := &in.state.banks[bank-1]

	fields := strings.Fields(args)
	switch strings.ToLower(fields[0]) {
	case "clear":
		*slot = fileSlot{}
		return fmt.Sprintf("File bank %d cleared.", bank), nil
	case "show":
		all, err := parseShowAll(fields[1:])
		if err != nil {
			return "", err
		}
		if slot.empty() {
			return fmt.Sprintf("File bank %d is empty.", bank), nil
		}
		return fmt.Sprintf("File bank %d (%s):\n%s", bank, slot.path, preview(slot.content, all)), nil
	}

	loaded, err := in.loadSlot(unquote(args))
	if err != nil {
		return "", err
	}
	*slot = loaded
	return fmt.Sprintf("File '%s' loaded into bank %d.%s", loaded.path, bank, truncationNote(loaded)), nil
}

func cmdShowFile(_ context.Context, in *Interpreter, args string) (string, error) {
	all, err := parseShowAll(strings.Fields(args))
	if err != nil {
		return "", err
	}
	if in.state.buffer.empty() {
		return "File buffer is empty.", nil
	}
	return fmt.Sprintf("File buffer (%s):\n%s", in.state.buffer.path, preview(in.state.buffer.content, all)), nil
}

func cmdClearFile(_ context.Context, in *Interpreter, _ string) (string, error) {
	in.state.buffer = fileSlot{}
	return "File buffer cleared.", nil
}

func cmdPrompt(ctx context.Context, in *Interpreter, args string) (string, error) {
	if args == "" {
		return "", newError(MissingArgument, "usage: /prompt <path>")
	}
	path := unquote(args)
	content, err := in.files.ReadFile(path, 0)
	if err != nil {
		return "", fileError(err, path)
	}
	text := strings.TrimSpace(content.Text)
	if text == "" {
		return "", newError(InvalidArgument, "prompt file '%s' is empty", path)
	}
	return "", in.sendChat(ctx, Expand(text, in.vars))
}

func cmdSystem(_ context.Context, in *Interpreter, args string) (string, error) {
	switch {
	case args == "":
		if in.state.system == "" {
			return "System message: (none)", nil
		}
		return "System message: " + in.state.system, nil
	case strings.EqualFold(args, "clear"):
		in.state.system = in.state.defaultSystem
		return "System message reset to default.", nil
	}
	in.state.system = unquote(args)
	return "System message set.", nil
}

func cmdTemp(_ context.Context, in *Interpreter, args string) (string, error) {
	entry := in.activeEntry()
	if args == "" {
		temperature, _ := in.effectiveParams(entry)
		return fmt.Sprintf("Temperature for %s: %.2f", entry.Alias, temperature), nil
	}

	v, err := strconv.ParseFloat(args, 64)
	if err != nil || math.IsNaN(v) || v < constants.MinTemperature || v > constants.MaxTemperature {
		return "", newError(InvalidArgument, "temperature must be a number between %.1f and %.1f, got %q",
			constants.MinTemperature, constants.MaxTemperature, args)
	}
	in.setTemperature(entry.Alias, v)
	return fmt.Sprintf("Temperature set to %.2f for %s.", v, entry.Alias), nil
}

func cmdMaxTokens(_ context.Context, in *Interpreter, args string) (string, error) {
	entry := in.activeEntry()
	if args == "" {
		_, maxTokens := in.effectiveParams(entry)
		if maxTokens <= 0 {
			return fmt.Sprintf("Max tokens for %s: default", entry.Alias), nil
		}
		return fmt.Sprintf("Max tokens for %s: %d", entry.Alias, maxTokens), nil
	}

	v, err := strconv.Atoi(args)
	if err != nil || v < constants.MinMaxTokens {
		return "", newError(InvalidArgument, "max tokens must be an integer of at least %d, got %q",
			constants.MinMaxTokens, args)
	}
	in.setMaxTokens(entry.Alias, v)
	return fmt.Sprintf("Max tokens set to %d for %s.", v, entry.Alias), nil
}

func cmdStream(_ context.Context, in *Interpreter, _ string) (string, error) {
	in.state.stream = !in.state.stream
	return "Streaming " + enabled(in.state.stream) + ".", nil
}

func cmdCodeOnly(_ context.Context, in *Interpreter, _ string) (string, error) {
	in.state.codeOnly = true
	return "Code-only mode enabled.", nil
}

func cmdCodeOff(_ context.Context, in *Interpreter, _ string) (string, error) {
	in.state.codeOnly = false
	return "Code-only mode disabled.", nil
}

func cmdMultiline(_ context.Context, in *Interpreter, _ string) (string, error) {
	in.state.multiline = !in.state.multiline
	in.pending = nil
	if in.state.multiline {
		return "Multiline mode enabled. End a message with a line containing only " + constants.MultilineTerminator, nil
	}
	return "Multiline mode disabled.", nil
}

func cmdLogging(_ context.Context, in *Interpreter, args string) (string, error) {
	switch strings.ToLower(args) {
	case "":
		return "", newError(MissingArgument, "usage: /logging <start|end>")
	case "start":
		path, err := in.transcript.Start()
		if err != nil {
			return "", fileError(err, "transcript")
		}
		return fmt.Sprintf("Logging started. Writing to '%s'.", path), nil
	case "end", "stop":
		if !in.transcript.Active() {
			return "Logging is not active.", nil
		}
		if err := in.transcript.Stop(); err != nil {
			return "", fileError(err, "transcript")
		}
		return "Logging stopped.", nil
	}
	return "", newError(InvalidArgument, "invalid logging action %q, use 'start' or 'end'", args)
}

func cmdSave(_ context.Context, in *Interpreter, args string) (string, error) {
	if args == "" {
		return "", newError(MissingArgument, "usage: /save <file>")
	}
	if in.state.lastCompletion == "" {
		return "No chat completion to save.", nil
	}

	content := in.state.lastCompletion
	if in.state.codeOnly {
		if code := ExtractCode(content); code != "" {
			content = code
		}
	}

	path := unquote(args)
	if err := in.files.WriteFile(path, content); err != nil {
		return "", fileError(err, path)
	}
	return fmt.Sprintf("Last chat completion saved to '%s'.", path), nil
}

func cmdScript(ctx context.Context, in *Interpreter, args string) (string, error) {
	if args == "" {
		return "", newError(MissingArgument, "usage: /script <path>")
	}
	return "", in.RunScript(ctx, unquote(args))
}

func cmdVars(_ context.Context, in *Interpreter, _ string) (string, error) {
	names := in.vars.Names()
	if len(names) == 0 {
		return "No variables defined.", nil
	}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, in.vars.Get(name)})
	}
	in.out.Table([]string{"Name", "Value"}, rows)
	return "", nil
}

func cmdQuit(_ context.Context, in *Interpreter, _ string) (string, error) {
	in.done = true
	in.pending = nil
	if in.transcript.Active() {
		if err := in.transcript.Stop(); err != nil {
			in.out.Warn("failed to close transcript: " + err.Error())
		}
	}
	return "Goodbye! Thanks for chatting.", nil
}

// loadSlot reads a context file for the buffer or a bank
func (in *Interpreter) loadSlot(path string) (fileSlot, error) {
	content, err := in.files.ReadFile(path, constants.MaxFileBuffer)
	if err != nil {
		return fileSlot{}, fileError(err, path)
	}
	if content.Truncated {
		in.log.Debug("file truncated", logging.Fields{"path": path, "size": content.Size})
	}
	return fileSlot{path: path, content: content.Text, truncated: content.Truncated}, nil
}

// fileError maps file store errors onto the interpreter taxonomy
func fileError(err error, path string) error {
	var ie *Error
	if errors.As(err, &ie) {
		return err
	}
	switch {
	case errors.Is(err, files.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return wrapError(FileNotFound, err, "")
	case errors.Is(err, files.ErrPermissionDenied), errors.Is(err, files.ErrProtectedPath),
		errors.Is(err, fs.ErrPermission):
		return wrapError(PermissionDenied, err, "")
	case errors.Is(err, files.ErrIsDirectory):
		return wrapError(InvalidArgument, err, "")
	}
	return wrapError(FileNotFound, err, "cannot access '%s'", path)
}

func parseShowAll(args []string) (bool, error) {
	switch {
	case len(args) == 0:
		return false, nil
	case len(args) == 1 && strings.EqualFold(args[0], "all"):
		return true, nil
	}
	return false, newError(InvalidArgument, "expected 'all', got %q", strings.Join(args, " "))
}

// preview returns the first FilePreviewLength characters of content
func preview(content string, all bool) string {
	if all {
		return content
	}
	runes := []rune(content)
	if len(runes) <= constants.FilePreviewLength {
		return content
	}
	return string(runes[:constants.FilePreviewLength]) + "..."
}

func truncationNote(slot fileSlot) string {
	if !slot.truncated {
		return ""
	}
	return fmt.Sprintf(" (truncated to %d bytes)", constants.MaxFileBuffer)
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
