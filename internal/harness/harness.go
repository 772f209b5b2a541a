package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/staltz/base/internal/cycle"
	"github.com/staltz/base/internal/drivers"
	"github.com/staltz/base/internal/store"
	"github.com/staltz/base/internal/stream"
	"github.com/staltz/base/internal/testutil"
	"github.com/staltz/base/internal/trace"
)

// DefaultDuration is how long a scenario runs when neither the scenario
// nor WithDuration says otherwise.
const DefaultDuration = 50 * time.Millisecond

type options struct {
	logger   *slog.Logger
	store    *store.Store
	clock    trace.SeqClock
	runIDs   trace.RunIDGenerator
	duration time.Duration
	settle   time.Duration
	persist  bool
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the logger handed to the runtime and to log drivers.
// Defaults to a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStore sets the store used by kv drivers and by WithPersist. Without
// it each run gets a fresh in-memory database.
func WithStore(st *store.Store) Option {
	return func(o *options) { o.store = st }
}

// WithClock replaces the deterministic seq clock.
func WithClock(c trace.SeqClock) Option {
	return func(o *options) { o.clock = c }
}

// WithRunIDGenerator sets how run ids are picked for scenarios that do not
// pin run_id.
func WithRunIDGenerator(g trace.RunIDGenerator) Option {
	return func(o *options) { o.runIDs = g }
}

// WithDuration sets the run duration for scenarios without duration_ms.
func WithDuration(d time.Duration) Option {
	return func(o *options) { o.duration = d }
}

// WithSettle sets the post-dispose wait for scenarios without settle_ms.
func WithSettle(d time.Duration) Option {
	return func(o *options) { o.settle = d }
}

// WithPersist writes the recorded trace to the store after the run.
func WithPersist(persist bool) Option {
	return func(o *options) { o.persist = persist }
}

// Run builds the scenario's cycle, runs it, disposes it and evaluates the
// assertions.
//
// Each run uses a deterministic seq clock and, unless the scenario pins
// one, the fixed run id "test-run-default".
//
// Execution flow:
//  1. Build main and drivers from the scenario
//  2. Wire them with cycle.New and subscribe the recorder to every source
//  3. Run for the scenario duration, then dispose
//  4. Keep recording for settle_ms so late events would show up
//  5. Return result with pass/fail, trace, and errors
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		duration: DefaultDuration,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	st := o.store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	clock := o.clock
	if clock == nil {
		clock = testutil.NewDeterministicClock()
	}

	runID := scenario.RunID
	if runID == "" {
		gen := o.runIDs
		if gen == nil {
			gen = testutil.NewFixedRunIDGenerator("")
		}
		runID = gen.Generate()
	}

	duration := o.duration
	if scenario.DurationMS > 0 {
		duration = time.Duration(scenario.DurationMS) * time.Millisecond
	}
	settle := o.settle
	if scenario.SettleMS > 0 {
		settle = time.Duration(scenario.SettleMS) * time.Millisecond
	}

	rec := trace.NewRecorder(runID, clock)
	w, err := cycle.New(
		buildMain(scenario),
		buildDrivers(ctx, scenario, rec, st, o.logger),
		cycle.Config[*stream.Stream]{
			StreamAdapter: stream.Adapter{},
			Logger:        o.logger,
			OnSinkError:   rec.OnSinkError,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build cycle: %w", err)
	}

	stop := rec.WatchSources(w.Sources)
	dispose, err := w.Run()
	if err != nil {
		stop()
		return nil, fmt.Errorf("failed to run cycle: %w", err)
	}
	o.logger.Info("scenario running",
		"scenario", scenario.Name,
		"run_id", runID,
		"duration", duration,
	)

	err = sleep(ctx, duration)
	dispose()
	if err == nil {
		err = sleep(ctx, settle)
	}
	stop()
	if err != nil {
		return nil, fmt.Errorf("scenario %s interrupted: %w", scenario.Name, err)
	}

	result := NewResult(runID)
	result.Trace = rec.Events()
	for _, se := range rec.SinkErrors() {
		result.SinkErrors = append(result.SinkErrors, ReportedError{Key: se.Key, Message: se.Error()})
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	if o.persist {
		if err := rec.Persist(ctx, st, scenario.Name); err != nil {
			return nil, err
		}
	}

	o.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"run_id", runID,
		"events", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildMain returns a main function producing the scenario's sinks.
func buildMain(scenario *Scenario) cycle.Main[*stream.Stream] {
	return func(sources cycle.Sources[*stream.Stream]) (cycle.Sinks[*stream.Stream], error) {
		sinks := make(cycle.Sinks[*stream.Stream], len(scenario.Main))
		for _, key := range sortedKeys(scenario.Main) {
			spec := scenario.Main[key]
			var s *stream.Stream
			if spec.From != "" {
				s = sources[spec.From]
			} else {
				s = stream.FromSlice(spec.Values)
			}
			sinks[key] = applyOps(s, spec.Ops)
		}
		return sinks, nil
	}
}

// buildDrivers returns the scenario's drivers, each with its sink tapped
// by the recorder.
func buildDrivers(
	ctx context.Context,
	scenario *Scenario,
	rec *trace.Recorder,
	st *store.Store,
	logger *slog.Logger,
) cycle.Drivers[*stream.Stream] {
	out := make(cycle.Drivers[*stream.Stream], len(scenario.Drivers))
	for key, spec := range scenario.Drivers {
		driver := newDriver(ctx, key, spec, st, logger)
		out[key] = func(sink *stream.Stream, sources cycle.Sources[*stream.Stream]) (*stream.Stream, error) {
			return driver(rec.Sink(key, sink), sources)
		}
	}
	return out
}

func newDriver(
	ctx context.Context,
	key string,
	spec DriverSpec,
	st *store.Store,
	logger *slog.Logger,
) cycle.Driver[*stream.Stream] {
	switch spec.Type {
	case DriverConst:
		return drivers.Const[*stream.Stream](stream.Adapter{}, spec.Values...)
	case DriverClock:
		return drivers.Clock(time.Duration(spec.PeriodMS)*time.Millisecond, spec.Count)
	case DriverLog:
		return drivers.Log(logger, key)
	case DriverKV:
		return drivers.KV(ctx, st)
	default:
		echo := drivers.Echo(nil)
		ops := spec.Ops
		return func(sink *stream.Stream, sources cycle.Sources[*stream.Stream]) (*stream.Stream, error) {
			src, err := echo(sink, sources)
			if err != nil {
				return nil, err
			}
			return applyOps(src, ops), nil
		}
	}
}
