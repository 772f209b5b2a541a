package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/staltz/base/internal/trace"
)

// Snapshot renders the parts of a result that golden files pin: scenario
// name, run id, trace and reported sink errors, as one line of canonical
// JSON.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	events := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		events[i] = e.Map()
	}

	reported := make([]any, len(result.SinkErrors))
	for i, r := range result.SinkErrors {
		reported[i] = map[string]any{
			"key":     r.Key,
			"message": r.Message,
		}
	}

	return trace.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"run_id":        result.RunID,
		"trace":         events,
		"sink_errors":   reported,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}
