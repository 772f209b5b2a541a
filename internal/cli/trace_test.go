package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staltz/base/internal/trace"
)

// recordRuns runs the named example scenarios into a fresh database, one
// run id per scenario, and returns the database path.
func recordRuns(t *testing.T, runIDs []string, scenarios ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      trace.NewFixedGenerator(runIDs...),
		Database:    dbPath,
	}
	for _, name := range scenarios {
		cmd := newRunCommand(opts)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{filepath.Join(exampleScenarios, name)})
		require.NoError(t, cmd.Execute())
	}
	return dbPath
}

func executeTrace(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestTrace_ListRuns(t *testing.T) {
	dbPath := recordRuns(t, []string{"run-1", "run-2"}, "echo_roundtrip.yaml", "sink_error.yaml")

	buf, err := executeTrace(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[1] run-1 echo_roundtrip")
	assert.Contains(t, buf.String(), "[2] run-2 sink_error")

	buf, err = executeTrace(t, "json", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []RunSummary{
		{ID: "run-1", Scenario: "echo_roundtrip", Seq: 1},
		{ID: "run-2", Scenario: "sink_error", Seq: 2},
	}, resp.Data)
}

func TestTrace_EmptyDatabase(t *testing.T) {
	buf, err := executeTrace(t, "text", "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No runs recorded.")
}

func TestTrace_ShowRunText(t *testing.T) {
	dbPath := recordRuns(t, []string{"run-err"}, "sink_error.yaml")

	buf, err := executeTrace(t, "text", "--db", dbPath, "--run", "run-err")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Trace for Run: run-err")
	assert.Contains(t, output, "Scenario: sink_error")
	assert.Contains(t, output, `  1 sink out next "a"`)
	assert.Contains(t, output, "  4 source out error malfunction")
	assert.Contains(t, output, "Total Events:  4")
	assert.Contains(t, output, "Errors:        1")
}

func TestTrace_ShowRunJSON(t *testing.T) {
	dbPath := recordRuns(t, []string{"run-kv"}, "kv_roundtrip.cue")

	buf, err := executeTrace(t, "json", "--db", dbPath, "--run", "run-kv", "--key", "db")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-kv", resp.Data.RunID)
	assert.Equal(t, "kv_roundtrip", resp.Data.Scenario)
	assert.Equal(t, resp.Data.Stats.SourceEvents+resp.Data.Stats.SinkEvents, resp.Data.Stats.TotalEvents)
	assert.Equal(t, 0, resp.Data.Stats.Errors)

	// The first sink event is the set request.
	require.NotEmpty(t, resp.Data.Events)
	first := resp.Data.Events[0]
	assert.Equal(t, "sink", first["stream"])
	assert.Equal(t, map[string]any{"op": "set", "key": "greeting", "value": "hi"}, first["value"])
}

func TestTrace_KeyFilter(t *testing.T) {
	dbPath := recordRuns(t, []string{"run-1"}, "echo_roundtrip.yaml")

	buf, err := executeTrace(t, "json", "--db", dbPath, "--run", "run-1", "--key", "other")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Empty(t, resp.Data.Events)
	assert.Equal(t, 0, resp.Data.Stats.TotalEvents)
}

func TestTrace_UnknownRun(t *testing.T) {
	dbPath := recordRuns(t, []string{"run-1"}, "const_numbers.yaml")

	_, err := executeTrace(t, "text", "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestTrace_RequiresDatabase(t *testing.T) {
	_, err := executeTrace(t, "text")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")
}

func TestTrace_DatabaseFromConfig(t *testing.T) {
	dbPath := recordRuns(t, []string{"run-1"}, "const_numbers.yaml")

	opts := &RootOptions{Format: "text"}
	cfg := opts.settings()
	cfg.Trace.DB = dbPath
	opts.Config = cfg

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "run-1 const_numbers")
}
