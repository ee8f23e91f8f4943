package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/stategraph/internal/workflows"
	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

func (a *App) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, name := range a.catalog.Names() {
				w, _ := a.catalog.Get(name)
				fmt.Fprintf(tw, "%s\t%s\n", name, w.Description())
			}
			return tw.Flush()
		},
	}
}

func (a *App) newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <workflow>",
		Short: "Print a workflow as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.workflow(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, w.Mermaid())
			return nil
		},
	}
}

// runOptions holds options for the run command.
type runOptions struct {
	input     string
	inputFile string
	threadID  string
	timeout   time.Duration
	maxSteps  int
	stream    bool
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow on a thread",
		Long: `Run a workflow with a JSON input document.

The input is merged onto the thread's latest state, so running again on the
same thread continues a conversation. Without --input the workflow's sample
input is used; without --thread a new thread ID is generated.

Examples:
  stategraph run bmi --input '{"weight":80,"height":1.8}'
  stategraph run chat --thread t1 --input '{"messages":[{"role":"user","content":"2 + 2"}]}'
  stategraph run crash --thread t2 --timeout 2s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Input JSON document")
	cmd.Flags().StringVar(&opts.inputFile, "input-file", "", "Read the input JSON document from a file")
	cmd.Flags().StringVarP(&opts.threadID, "thread", "t", "", "Thread ID (generated if empty)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Cancel the run after this long")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Maximum steps (overrides config)")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Print execution events as JSON lines")
	cmd.MarkFlagsMutuallyExclusive("input", "input-file")
	return cmd
}

func (a *App) run(ctx context.Context, name string, opts *runOptions) error {
	w, err := a.workflow(name)
	if err != nil {
		return err
	}

	input := json.RawMessage(opts.input)
	switch {
	case opts.inputFile != "":
		data, err := os.ReadFile(opts.inputFile)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		input = data
	case opts.input == "":
		input = w.Sample()
	}
	if !json.Valid(input) {
		return errors.New("input is not valid JSON")
	}

	threadID := opts.threadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	s, err := a.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	gctx := s.context(ctx, workflows.Offline())
	runOpts := s.options(name, threadID, opts.maxSteps)

	if opts.stream {
		enc := json.NewEncoder(a.stdout)
		for ev, err := range w.Stream(gctx, input, runOpts...) {
			if err != nil {
				return a.explain(threadID, err)
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
		return nil
	}

	out, err := w.Invoke(gctx, input, runOpts...)
	if err != nil {
		return a.explain(threadID, err)
	}
	return a.printJSON(out)
}

func (a *App) newResumeCmd() *cobra.Command {
	var (
		threadID string
		value    string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resume <workflow>",
		Short: "Resume a suspended or interrupted thread",
		Long: `Resume a thread from its latest checkpoint.

A suspended thread needs --value, the JSON answer to its pending interrupt.
A thread whose run failed or was cancelled is resumed without a value and
re-runs the step that did not complete.

Examples:
  stategraph resume approval --thread t1 --value '{"approved":"yes"}'
  stategraph resume crash --thread t2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.workflow(args[0])
			if err != nil {
				return err
			}
			if value != "" && !json.Valid([]byte(value)) {
				return errors.New("value is not valid JSON")
			}

			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			out, err := w.Resume(s.context(ctx, workflows.Offline()), s.backend.Store, threadID,
				json.RawMessage(value), s.options(args[0], "", 0)...)
			if err != nil {
				return a.explain(threadID, err)
			}
			return a.printJSON(out)
		},
	}

	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread ID")
	cmd.Flags().StringVar(&value, "value", "", "Resume value as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Cancel the run after this long")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func (a *App) newStateCmd() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "state <workflow>",
		Short: "Print the latest snapshot of a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.workflow(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := w.State(cmd.Context(), s.backend.Store, threadID)
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread ID")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func (a *App) newHistoryCmd() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "history <workflow>",
		Short: "Print every checkpoint of a thread, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.workflow(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			hist, err := w.History(cmd.Context(), s.backend.Store, threadID)
			if err != nil {
				return err
			}
			return a.printJSON(hist)
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Thread ID")
	_ = cmd.MarkFlagRequired("thread")
	return cmd
}

func (a *App) newThreadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List the threads in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			threads, err := stategraph.Threads(ctx, s.backend.Store)
			if err != nil {
				return err
			}
			if len(threads) == 0 {
				fmt.Fprintln(a.stdout, "No threads found.")
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "THREAD\tSTEP\tSTATUS\tUPDATED")
			for _, id := range threads {
				cp, err := s.backend.Store.Latest(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", id, cp.Step, cp.Status, cp.Timestamp.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

// explain adds the thread ID to run errors so the user can resume.
func (a *App) explain(threadID string, err error) error {
	var cancelled *stategraph.CancellationError
	if errors.As(err, &cancelled) {
		return fmt.Errorf("thread %s interrupted at step %d, resume it with 'stategraph resume': %w", threadID, cancelled.Step, err)
	}
	return fmt.Errorf("thread %s: %w", threadID, err)
}
