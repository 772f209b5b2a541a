package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staltz/base/internal/store"
	"github.com/staltz/base/internal/trace"
)

const failingScenario = `name: wrong_echo
description: asserts a value echo never returns
drivers:
  out:
    type: echo
main:
  out:
    values: ["a"]
assertions:
  - type: source_values
    key: out
    values: ["z"]
`

func newTestRunCommand(format string, runIDs ...string) (*RunOptions, *bytes.Buffer, *bytes.Buffer) {
	return &RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      trace.NewFixedGenerator(runIDs...),
	}, &bytes.Buffer{}, &bytes.Buffer{}
}

func executeRun(t *testing.T, opts *RunOptions, out, errOut *bytes.Buffer, args ...string) error {
	t.Helper()
	cmd := newRunCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestRun_TextOutput(t *testing.T) {
	opts, out, errOut := newTestRunCommand("text", "run-1")

	err := executeRun(t, opts, out, errOut, filepath.Join(exampleScenarios, "echo_roundtrip.yaml"))
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Run run-1 (echo_roundtrip)")
	assert.Contains(t, output, `  1 sink out next "a"`)
	assert.Contains(t, output, `  4 source out next "b"`)
	assert.Contains(t, output, "  6 source out complete")
	assert.Contains(t, output, "✓ echo_roundtrip")
}

func TestRun_JSONOutput(t *testing.T) {
	opts, out, errOut := newTestRunCommand("json", "run-json")

	err := executeRun(t, opts, out, errOut, filepath.Join(exampleScenarios, "echo_roundtrip.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-json", resp.Data.RunID)
	assert.Equal(t, "echo_roundtrip", resp.Data.Scenario)
	assert.True(t, resp.Data.Pass)
	require.Len(t, resp.Data.Trace, 6)
	assert.Equal(t, "sink", resp.Data.Trace[0]["stream"])
	assert.Equal(t, "a", resp.Data.Trace[0]["value"])
}

func TestRun_SinkErrorIsPrinted(t *testing.T) {
	opts, out, errOut := newTestRunCommand("text", "run-err")

	err := executeRun(t, opts, out, errOut, filepath.Join(exampleScenarios, "sink_error.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Sink error: out: malfunction")
	assert.Contains(t, out.String(), "4 source out error malfunction")
}

func TestRun_FailingAssertions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.yaml")
	require.NoError(t, os.WriteFile(path, []byte(failingScenario), 0644))

	t.Run("text", func(t *testing.T) {
		opts, out, errOut := newTestRunCommand("text", "run-fail")
		err := executeRun(t, opts, out, errOut, path)

		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out.String(), "✗ wrong_echo")
		assert.Contains(t, out.String(), "Assertion failed")
	})

	t.Run("json", func(t *testing.T) {
		opts, out, errOut := newTestRunCommand("json", "run-fail")
		err := executeRun(t, opts, out, errOut, path)

		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E_ASSERTION_FAILED", resp.Error.Code)
	})
}

func TestRun_MissingScenario(t *testing.T) {
	opts, out, errOut := newTestRunCommand("text")

	err := executeRun(t, opts, out, errOut, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRun_PersistsToDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	opts, out, errOut := newTestRunCommand("text", "run-a", "run-b")

	scenario := filepath.Join(exampleScenarios, "echo_roundtrip.yaml")
	require.NoError(t, executeRun(t, opts, out, errOut, "--db", dbPath, scenario))
	require.NoError(t, executeRun(t, opts, out, errOut, "--db", dbPath, scenario))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)

	records, err := st.ReadEvents(context.Background(), "run-b")
	require.NoError(t, err)
	assert.Len(t, records, 6)
}

func TestRun_DatabaseFromConfig(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "from-config.db")
	opts, out, errOut := newTestRunCommand("text", "run-cfg")
	cfg := opts.settings()
	cfg.Trace.DB = dbPath
	opts.Config = cfg

	require.NoError(t, executeRun(t, opts, out, errOut, filepath.Join(exampleScenarios, "const_numbers.yaml")))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "run-cfg")
	require.NoError(t, err)
	assert.Equal(t, "const_numbers", run.Scenario)
}

func TestRun_RequiresScenarioArgument(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
