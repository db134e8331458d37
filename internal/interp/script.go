package interp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quocvuong92/chatybot/internal/logging"
)

// RunScript runs the directives in path in script mode. Errors on individual
// lines are reported with their location and the script continues. It fails
// with CyclicScriptInclusion when path is already running.
func (in *Interpreter) RunScript(ctx context.Context, path string) error {
	key := scriptKey(path)
	for _, open := range in.scripts {
		if open == key {
			chain := append(append([]string{}, in.scripts...), key)
			return newError(CyclicScriptInclusion, "script '%s' includes itself (%s)", path, strings.Join(chain, " -> "))
		}
	}

	content, err := in.files.ReadFile(path, 0)
	if err != nil {
		return fileError(err, path)
	}

	in.scripts = append(in.scripts, key)
	defer func() { in.scripts = in.scripts[:len(in.scripts)-1] }()

	log := in.log.WithFields(logging.Fields{"script": path, "depth": len(in.scripts)})
	log.Debug("script started")

	lines := strings.Split(content.Text, "\n")
	for i, line := range lines {
		if in.done {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line = strings.TrimRight(line, "\r")
		if err := in.Exec(ctx, line, ModeScript); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			located := withSource(err, fmt.Sprintf("%s:%d", path, i+1))
			log.Debug("line failed", logging.Fields{"line": i + 1, "error": err.Error()})
			in.report(located)
		}
	}

	log.Debug("script finished")
	return nil
}

// scriptKey identifies a script file on the inclusion stack
func scriptKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
