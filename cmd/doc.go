// Package cmd implements the CLI commands for chatybot.
//
// # Architecture
//
//   - root.go: App struct, cobra command setup, flags, startup (.env, config, renderer)
//   - run.go: the run subcommand, scripts without a prompt
//   - init.go: the init subcommand, writes a default chat_config.toml
//   - interactive.go: go-prompt REPL and slash-command completion
//
// Everything a line can do lives in internal/interp; this package only wires
// the interpreter to the terminal, the config file and the model API.
//
// # Startup
//
// Each chat command loads a .env file from the working directory, configures
// diagnostic logging (debug with --verbose), validates the configuration and
// builds an interp.Interpreter with a display.Presenter. A configuration
// error is the only thing that stops chatybot before the prompt appears.
//
// # Usage
//
//	// Main entry point
//	func main() {
//	    cmd.Execute()
//	}
package cmd
