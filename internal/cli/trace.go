package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/staltz/base/internal/store"
	"github.com/staltz/base/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show one run instead of listing
	Key      string // optional - filter to one source/sink key
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	Seq      int64  `json:"seq"`
}

// TraceResult holds the events of one recorded run.
type TraceResult struct {
	RunID    string           `json:"run_id"`
	Scenario string           `json:"scenario"`
	Events   []map[string]any `json:"events"`
	Stats    TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalEvents  int `json:"total_events"`
	SourceEvents int `json:"source_events"`
	SinkEvents   int `json:"sink_events"`
	Errors       int `json:"errors"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect runs recorded with "cycle run --db".

Without --run, lists every recorded run in the order it was written.
With --run, prints the source and sink events of that run in seq order.

Examples:
  cycle trace --db ./runs.db
  cycle trace --db ./runs.db --run 0190a6e4-...
  cycle trace --db ./runs.db --run 0190a6e4-... --key kv --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to trace.db from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Key, "key", "", "filter events to one source/sink key")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.settings().Trace.DB
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set trace.db")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		summaries := make([]RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = RunSummary{ID: r.ID, Scenario: r.Scenario, Seq: r.Seq}
		}
		if opts.Format == "json" {
			return outputTraceJSON(cmd, summaries)
		}
		return outputRunsText(cmd, summaries)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	records, err := st.ReadEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	events := make([]trace.Event, 0, len(records))
	for _, rec := range records {
		if opts.Key != "" && rec.Key != opts.Key {
			continue
		}
		e, err := trace.FromRecord(rec)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to decode event", err)
		}
		events = append(events, e)
	}

	result := TraceResult{
		RunID:    run.ID,
		Scenario: run.Scenario,
		Events:   make([]map[string]any, len(events)),
		Stats:    traceStats(events),
	}
	for i, e := range events {
		result.Events[i] = e.Map()
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, events)
}

func traceStats(events []trace.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, e := range events {
		switch e.Stream {
		case trace.SideSource:
			stats.SourceEvents++
		case trace.SideSink:
			stats.SinkEvents++
		}
		if e.Kind == trace.KindError {
			stats.Errors++
		}
	}
	return stats
}

// outputTraceJSON outputs the trace data as JSON.
func outputTraceJSON(cmd *cobra.Command, data any) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func outputRunsText(cmd *cobra.Command, runs []RunSummary) error {
	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "  [%d] %s %s\n", r.Seq, r.ID, r.Scenario)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, events []trace.Event) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Events ===")
	if len(events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, e := range events {
		fmt.Fprintf(w, "  %s\n", e.String())
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events:  %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Source Events: %d\n", result.Stats.SourceEvents)
	fmt.Fprintf(w, "  Sink Events:   %d\n", result.Stats.SinkEvents)
	fmt.Fprintf(w, "  Errors:        %d\n", result.Stats.Errors)

	return nil
}
