package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/staltz/base/internal/harness"
	"github.com/staltz/base/internal/store"
	"github.com/staltz/base/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs trace.RunIDGenerator
}

// RunOutput is the data payload of a run in JSON format.
type RunOutput struct {
	RunID      string           `json:"run_id"`
	Scenario   string           `json:"scenario"`
	Pass       bool             `json:"pass"`
	Trace      []map[string]any `json:"trace"`
	SinkErrors []string         `json:"sink_errors,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run one scenario: build its drivers and main, run the cycle for the
scenario duration, dispose it and print every recorded source and sink event.

With --db (or trace.db in the config) the run and its trace are written to
a SQLite database for later inspection with "cycle trace".

Exit codes:
  0 - All assertions passed
  1 - One or more assertions failed
  2 - Command error (unreadable scenario, database error, etc.)

Example:
  cycle run ./scenarios/echo_roundtrip.yaml
  cycle run --db ./runs.db ./scenarios/kv_roundtrip.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for recorded runs")

	return cmd
}

func runCycle(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg := opts.settings()
	logger := opts.logger(cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = trace.UUIDv7Generator{}
	}
	runOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithRunIDGenerator(runIDs),
		harness.WithDuration(cfg.Run.Duration()),
		harness.WithSettle(cfg.Run.Settle()),
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Trace.DB
	}
	if dbPath != "" {
		logger.Debug("opening database", "path", dbPath)
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithStore(st), harness.WithPersist(true))
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, disposing cycle", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	out := RunOutput{
		RunID:    result.RunID,
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Trace:    make([]map[string]any, len(result.Trace)),
		Errors:   result.Errors,
	}
	for i, e := range result.Trace {
		out.Trace[i] = e.Map()
	}
	for _, r := range result.SinkErrors {
		out.SinkErrors = append(out.SinkErrors, fmt.Sprintf("%s: %s", r.Key, r.Message))
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd, out)
	}
	return outputRunText(cmd, result, out, logger)
}

func outputRunJSON(cmd *cobra.Command, out RunOutput) error {
	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if !out.Pass {
		if err := f.Error("E_ASSERTION_FAILED", fmt.Sprintf("%d assertion(s) failed", len(out.Errors)), out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}
	return f.Success(out)
}

func outputRunText(cmd *cobra.Command, result *harness.Result, out RunOutput, logger *slog.Logger) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run %s (%s)\n", out.RunID, out.Scenario)
	for _, e := range result.Trace {
		fmt.Fprintf(w, "  %s\n", e.String())
	}
	for _, se := range out.SinkErrors {
		fmt.Fprintf(w, "Sink error: %s\n", se)
	}

	if !out.Pass {
		fmt.Fprintf(w, "✗ %s\n", out.Scenario)
		for _, e := range out.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		logger.Debug("scenario failed", "scenario", out.Scenario, "failures", len(out.Errors))
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}

	fmt.Fprintf(w, "✓ %s\n", out.Scenario)
	return nil
}
