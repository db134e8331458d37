package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/chatybot/internal/display"
	"github.com/quocvuong92/chatybot/internal/logging"
)

func (app *App) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>...",
		Short: "Run scripts non-interactively",
		Long: `Run one or more scripts in order and exit.

Scripts share variables and session state. A line that fails is reported
with its file and line number and the script continues. Chat lines in a
script must start with "chat -->".

Examples:
  chatybot run review.txt
  chatybot run -m local -s setup.txt ask.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runScripts(cmd.Context(), args)
		},
	}
}

// runScripts runs each script in one session. Interrupts cancel waits and
// in-flight requests.
func (app *App) runScripts(ctx context.Context, paths []string) error {
	if err := app.prepare(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	presenter := display.NewPresenterTo(app.out, app.errOut, app.cfg.Render)
	in, err := app.newInterpreter(presenter)
	if err != nil {
		return err
	}
	defer in.Close()

	failed := 0
	for _, path := range paths {
		logging.DefaultLogger.Debug("running script", logging.Fields{"path": path})
		if err := in.RunScript(ctx, path); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("interrupted while running %s: %w", path, ctx.Err())
			}
			presenter.Error(err)
			failed++
		}
		if in.Done() {
			break
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scripts could not be run", failed, len(paths))
	}
	return nil
}
