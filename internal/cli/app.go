// Package cli implements the stategraph command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/stategraph/internal/workflows"
	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
)

// App is the stategraph CLI.
type App struct {
	root    *cobra.Command
	stdout  io.Writer
	stderr  io.Writer
	catalog *workflows.Catalog

	configPath string
	envFile    string
}

// New creates the CLI over the built-in workflows.
func New() *App {
	app := &App{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		catalog: workflows.Builtin(),
	}

	app.root = &cobra.Command{
		Use:   "stategraph",
		Short: "Run, inspect and resume state graph workflows",
		Long: `stategraph runs the built-in example workflows on durable threads.

Every run is checkpointed to the configured store, so suspended or
interrupted threads can be resumed and their history inspected later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	app.root.PersistentFlags().StringVar(&app.envFile, "env-file", ".env", "Env file loaded before STATEGRAPH_* overrides")

	app.root.AddCommand(
		app.newListCmd(),
		app.newGraphCmd(),
		app.newRunCmd(),
		app.newResumeCmd(),
		app.newStateCmd(),
		app.newHistoryCmd(),
		app.newThreadsCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI until the command finishes or the process is
// interrupted.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) loadConfig() (config.Config, error) {
	var envFiles []string
	if a.envFile != "" {
		envFiles = append(envFiles, a.envFile)
	}
	return config.Load(a.configPath, envFiles...)
}

func (a *App) workflow(name string) (workflows.Workflow, error) {
	w, ok := a.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q (see 'stategraph list')", name)
	}
	return w, nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
