// Package interp is the chatybot command and script interpreter.
//
// Every input line, typed or read from a script, goes through the same
// pipeline:
//
//	expand ${name} tokens -> Parse -> execute
//
// Execution either updates the variable table (set), evaluates a condition
// (if ... then), sleeps (wait), dispatches a slash command, or sends a chat
// message to the active model. Errors are reported through the Presenter and
// never stop the loop; only /quit ends a session.
//
// Collaborators are interfaces so the interpreter can be driven entirely
// in-memory by tests:
//
//	in, err := interp.New(interp.Options{
//	    Config:    cfg,
//	    Presenter: display.NewPresenter(cfg.Render),
//	})
//	in.Feed(ctx, "set project = bot")
//	in.Feed(ctx, "if ${project} then /file bot_requirements.txt")
package interp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/quocvuong92/chatybot/internal/api"
	"github.com/quocvuong92/chatybot/internal/config"
	"github.com/quocvuong92/chatybot/internal/constants"
	"github.com/quocvuong92/chatybot/internal/files"
	"github.com/quocvuong92/chatybot/internal/logging"
	"github.com/quocvuong92/chatybot/internal/transcript"
)

// ConfigStore is the read-only model registry
type ConfigStore interface {
	Lookup(alias string) (config.ModelEntry, bool)
	Aliases() []string
}

// FileStore reads context, prompt and script files and writes saved completions
type FileStore interface {
	ReadFile(path string, limit int) (files.Content, error)
	WriteFile(path, content string) error
}

// SessionLogger is the transcript sink toggled by /logging
type SessionLogger interface {
	Start() (string, error)
	Stop() error
	Active() bool
	Append(prompt, response string) error
}

var _ SessionLogger = (*transcript.Logger)(nil)

// ClientFactory builds the model client for a config entry
type ClientFactory func(entry config.ModelEntry) (api.ModelClient, error)

// Presenter shows results, errors and responses to the user
type Presenter interface {
	Print(text string)
	Error(err error)
	Warn(msg string)
	Table(headers []string, rows [][]string)
	// Busy, Chunk, Idle and Completion bracket one model call
	Busy(msg string)
	Chunk(content string)
	Idle()
	Completion(content string)
}

// Sleeper pauses for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Options configures an Interpreter. Config and Presenter are required.
type Options struct {
	Config     ConfigStore
	Files      FileStore
	Transcript SessionLogger
	NewClient  ClientFactory
	Presenter  Presenter
	Sleep      Sleeper
	Logger     *logging.Logger

	// Initial session settings
	Model         string
	SystemMessage string
	Stream        bool
}

// Interpreter owns the variable table and session state of one chat session.
// It is not safe for concurrent use; directives run one at a time.
type Interpreter struct {
	cfg        ConfigStore
	files      FileStore
	transcript SessionLogger
	newClient  ClientFactory
	out        Presenter
	sleep      Sleeper
	log        *logging.Logger

	vars     *Vars
	state    session
	clients  map[string]api.ModelClient
	commands map[string]*command

	// scripts is the stack of script paths currently running
	scripts []string
	// pending holds multiline input waiting for the terminator
	pending []string
	done    bool
}

// New creates an interpreter. The initial model defaults to the first
// configured alias.
func New(opts Options) (*Interpreter, error) {
	if opts.Config == nil {
		return nil, errors.New("interp: Config is required")
	}
	if opts.Presenter == nil {
		return nil, errors.New("interp: Presenter is required")
	}
	if opts.Files == nil {
		opts.Files = files.NewStore()
	}
	if opts.Transcript == nil {
		opts.Transcript = transcript.New("")
	}
	if opts.NewClient == nil {
		opts.NewClient = func(entry config.ModelEntry) (api.ModelClient, error) {
			return api.NewClient(entry, api.Options{})
		}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger
	}

	model := opts.Model
	if model == "" {
		aliases := opts.Config.Aliases()
		if len(aliases) == 0 {
			return nil, newError(UnknownModel, "no models configured")
		}
		model = aliases[0]
	}
	if _, ok := opts.Config.Lookup(model); !ok {
		return nil, newError(UnknownModel, "model alias '%s' not found in configuration", model)
	}

	system := opts.SystemMessage
	if system == "" {
		system = constants.DefaultSystemMessage
	}

	return &Interpreter{
		cfg:        opts.Config,
		files:      opts.Files,
		transcript: opts.Transcript,
		newClient:  opts.NewClient,
		out:        opts.Presenter,
		sleep:      opts.Sleep,
		log:        opts.Logger,
		vars:       NewVars(),
		state: session{
			model:         model,
			overrides:     make(map[string]params),
			system:        system,
			defaultSystem: system,
			stream:        opts.Stream,
		},
		clients:  make(map[string]api.ModelClient),
		commands: buildCommands(),
	}, nil
}

// Vars exposes the variable table
func (in *Interpreter) Vars() *Vars {
	return in.vars
}

// Done reports whether /quit has ended the session
func (in *Interpreter) Done() bool {
	return in.done
}

// Exec runs one line and returns its error without reporting it. Errors
// carry the line as typed, before substitution, as their Source.
func (in *Interpreter) Exec(ctx context.Context, line string, mode Mode) error {
	d, err := Parse(expandLine(line, in.vars), mode)
	if err == nil {
		d.Source = line
		err = in.execDirective(ctx, d)
	}
	return sourced(err, strings.TrimSpace(line))
}

func (in *Interpreter) execDirective(ctx context.Context, d Directive) error {
	switch d.Kind {
	case Comment:
		return nil

	case Assignment:
		in.vars.Set(d.Name, d.Value)
		in.log.Debug("variable set", logging.Fields{"name": d.Name, "value": d.Value})
		return nil

	case Conditional:
		ok := d.Cond.Eval(in.vars)
		in.log.Debug("condition evaluated", logging.Fields{"condition": d.Cond.String(), "result": ok})
		if !ok {
			return nil
		}
		return in.execDirective(ctx, *d.Then)

	case Wait:
		in.log.Debug("waiting", logging.Fields{"seconds": d.Seconds})
		return in.sleep(ctx, time.Duration(d.Seconds*float64(time.Second)))

	case SlashCommand:
		in.log.Debug("dispatch", logging.Fields{"command": "/" + d.Command, "args": d.Args})
		result, err := in.dispatch(ctx, d.Command, d.Args)
		if result != "" {
			in.out.Print(result)
		}
		return err

	case ChatUtterance:
		return in.sendChat(ctx, d.Text)
	}
	return newError(ParseError, "unhandled directive %s", d.Kind)
}

// Feed handles one line of interactive input, reporting any error. In
// multiline mode lines accumulate until the terminator line. It returns
// false once the session has ended.
func (in *Interpreter) Feed(ctx context.Context, line string) bool {
	if in.done {
		return false
	}

	if in.state.multiline {
		trimmed := strings.TrimSpace(line)
		if trimmed == constants.MultilineTerminator {
			text := strings.TrimSpace(strings.Join(in.pending, "\n"))
			in.pending = nil
			if text != "" {
				in.report(in.sendChat(ctx, Expand(text, in.vars)))
			}
			return !in.done
		}
		// Slash commands still run directly so /multiline can be turned off
		if len(in.pending) > 0 || !strings.HasPrefix(trimmed, "/") {
			if len(in.pending) > 0 || trimmed != "" {
				in.pending = append(in.pending, line)
			}
			return true
		}
	}

	in.report(in.Exec(ctx, line, ModeInteractive))
	return !in.done
}

// Pending returns the number of accumulated multiline lines
func (in *Interpreter) Pending() int {
	return len(in.pending)
}

// Close stops the transcript and releases model clients
func (in *Interpreter) Close() {
	if in.transcript.Active() {
		if err := in.transcript.Stop(); err != nil {
			in.log.Warn("failed to close transcript", logging.Fields{"error": err.Error()})
		}
	}
	for alias, c := range in.clients {
		c.Close()
		delete(in.clients, alias)
	}
}

// report shows err to the user
func (in *Interpreter) report(err error) {
	if err == nil {
		return
	}
	kind, _ := KindOf(err)
	in.log.Debug("directive failed", logging.Fields{"kind": kind.String(), "error": err.Error()})
	in.out.Error(err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
