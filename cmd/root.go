package cmd

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quocvuong92/chatybot/internal/api"
	"github.com/quocvuong92/chatybot/internal/config"
	"github.com/quocvuong92/chatybot/internal/display"
	"github.com/quocvuong92/chatybot/internal/files"
	"github.com/quocvuong92/chatybot/internal/interp"
	"github.com/quocvuong92/chatybot/internal/logging"
	"github.com/quocvuong92/chatybot/internal/transcript"
)

// App holds the application state
type App struct {
	cfg    *config.Config
	out    io.Writer
	errOut io.Writer

	// transcriptDir is where /logging writes; the working directory when empty
	transcriptDir string
}

// NewApp creates a new App instance with default configuration
func NewApp() *App {
	return &App{
		cfg:    config.NewConfig(),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// Execute runs the root command
func Execute() {
	app := NewApp()
	if err := app.newRootCmd().Execute(); err != nil {
		display.ShowError(err.Error())
		os.Exit(1)
	}
}

func (app *App) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chatybot",
		Short: "A scriptable chat client for OpenAI-compatible models",
		Long: `chatybot is an interactive chat client for OpenAI-compatible model APIs
with a small scripting language for repeatable sessions.

Models are configured in chat_config.toml (see 'chatybot init'). Each model
entry names the environment variable that holds its API key; a .env file in
the working directory is loaded at startup.

Examples:
  chatybot                              # Interactive mode with the default model
  chatybot -m local -s                  # Use the "local" alias and stream output
  chatybot -r                           # Render responses as markdown
  chatybot -f setup.txt                 # Run a script, then continue interactively
  chatybot run review.txt               # Run a script and exit
  chatybot --list-models`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          app.runRoot,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&app.cfg.ConfigPath, "config", "c", "", "Path to the config file (default: search chat_config.toml)")
	pf.StringVarP(&app.cfg.Model, "model", "m", "", "Model alias from the config file")
	pf.BoolVarP(&app.cfg.Stream, "stream", "s", false, "Stream output in real-time")
	pf.BoolVarP(&app.cfg.Render, "render", "r", false, "Render markdown with colors and formatting")
	pf.BoolVarP(&app.cfg.Verbose, "verbose", "v", false, "Enable debug logging, including HTTP requests")
	pf.StringVar(&app.cfg.LogLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error, off (default warn)")
	pf.StringVar(&app.cfg.LogFormat, "log-format", "text", "Diagnostic log format: text or json")

	rootCmd.Flags().StringArrayVarP(&app.cfg.ScriptPaths, "script", "f", nil, "Run a script before the interactive prompt (repeatable)")
	rootCmd.Flags().BoolVar(&app.cfg.ListModels, "list-models", false, "List configured models")

	rootCmd.AddCommand(app.newRunCmd())
	rootCmd.AddCommand(newInitCmd())

	return rootCmd
}

func (app *App) runRoot(cmd *cobra.Command, args []string) error {
	if err := app.prepare(); err != nil {
		return err
	}

	if app.cfg.ListModels {
		app.showModels()
		return nil
	}

	presenter := display.NewPresenterTo(app.out, app.errOut, app.cfg.Render)
	in, err := app.newInterpreter(presenter)
	if err != nil {
		return err
	}
	defer in.Close()

	ctx := cmd.Context()
	for _, path := range app.cfg.ScriptPaths {
		if err := in.RunScript(ctx, path); err != nil {
			presenter.Error(err)
		}
		if in.Done() {
			return nil
		}
	}

	app.runInteractive(ctx, in)
	return nil
}

// prepare loads .env and the configuration shared by the chat commands
func (app *App) prepare() error {
	logging.Configure(app.cfg.Verbose, app.cfg.LogLevel, app.cfg.LogFormat)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.DefaultLogger.Warn("failed to load .env file", logging.Fields{"error": err.Error()})
	}

	if err := app.cfg.Validate(); err != nil {
		return err
	}
	logging.DefaultLogger.Debug("configuration loaded", logging.Fields{
		"path":   app.cfg.SourcePath,
		"model":  app.cfg.Model,
		"models": len(app.cfg.Order),
	})

	if app.cfg.Render {
		if err := display.InitRenderer(); err != nil {
			logging.DefaultLogger.Warn("failed to initialize renderer", logging.Fields{"error": err.Error()})
		}
	}
	return nil
}

func (app *App) newInterpreter(presenter interp.Presenter) (*interp.Interpreter, error) {
	return interp.New(interp.Options{
		Config:        app.cfg,
		Files:         files.NewStore(),
		Transcript:    transcript.New(app.transcriptDir),
		NewClient:     app.newClient,
		Presenter:     presenter,
		Logger:        logging.DefaultLogger,
		Model:         app.cfg.Model,
		SystemMessage: app.cfg.SystemMessage,
		Stream:        app.cfg.Stream,
	})
}

func (app *App) newClient(entry config.ModelEntry) (api.ModelClient, error) {
	return api.NewClient(entry, api.Options{
		Verbose: app.cfg.Verbose,
		Logger:  logging.DefaultLogger,
	})
}

// showModels prints the model registry for --list-models
func (app *App) showModels() {
	rows := make([][]string, 0, len(app.cfg.Order))
	for _, alias := range app.cfg.Order {
		entry, _ := app.cfg.Lookup(alias)
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = "Default OpenAI URL"
		}
		marker := " "
		if alias == app.cfg.Model {
			marker = "*"
		}
		rows = append(rows, []string{marker, alias, entry.Name, baseURL, entry.APIKey})
	}
	display.ShowTable(app.out, []string{"", "Alias", "Model Name", "Base URL", "API Key Env"}, rows)
}
