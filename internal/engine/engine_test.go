package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
	"github.com/materialscodegraph/materialscodegraph/internal/registry"
	"github.com/materialscodegraph/materialscodegraph/internal/store"
)

// fakeRunner stands in for the external tool: it writes declared files
// into the scratch directory instead of launching anything.
type fakeRunner struct {
	files    map[string]string
	exitCode int
	lastSpec CommandSpec
}

func (f *fakeRunner) Run(_ context.Context, spec CommandSpec) (CommandResult, error) {
	f.lastSpec = spec
	for name, body := range f.files {
		if err := os.WriteFile(filepath.Join(spec.Dir, name), []byte(body), 0o644); err != nil {
			return CommandResult{}, err
		}
	}
	if f.exitCode != 0 {
		return CommandResult{ExitCode: f.exitCode, Stderr: "simulated failure"}, nil
	}
	return CommandResult{}, nil
}

const calculatorDefinition = `
name: Materials Calculator
methods:
  phonon:
    input_template:
      - "task = phonon"
      - "temperature = $T"
      - "mesh = $mesh_string"
parameter_mapping:
  T: [temperature]
context_builders:
  mesh_string:
    type: parameter_transform
    source: mesh
    transform:
      type: list_to_string
    default: "8 8 8"
execution:
  mode: local
  local:
    executable: calc
expected_outputs: ["*.json"]
parsers:
  summary:
    type: json
output_files:
  - pattern: "*.json"
    parser: summary
default_results:
  status: completed
results:
  format:
    band_gap:
      unit: eV
`

func newTestEngine(t *testing.T, runner Runner) (*Engine, store.Store) {
	t.Helper()

	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, "materials_calculator.yaml"),
		[]byte(calculatorDefinition), 0o644))

	reg, err := registry.Open(configDir, zap.NewNop())
	require.NoError(t, err)

	st, err := store.OpenFile(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e := New(reg, st, zap.NewNop(),
		WithRunner(runner),
		WithClock(testClock),
		WithRunnerVersion("test"))
	return e, st
}

func TestExecuteHappyPath(t *testing.T) {
	runner := &fakeRunner{files: map[string]string{
		"results.json": `{"band_gap": 1.12}`,
	}}
	e, st := newTestEngine(t, runner)

	system, err := asset.New(asset.KindSystem, map[string]any{"lattice": "fcc"})
	require.NoError(t, err)

	out, err := e.Execute(context.Background(), Request{
		Job:    "materials calculator",
		Inputs: []asset.Asset{system},
		Params: map[string]any{"temperature": 300, "mesh": []any{6, 6, 6}},
	})
	require.NoError(t, err)

	assert.Equal(t, asset.StatusDone, out.Run.Status)
	assert.Equal(t, "phonon", out.Method)
	assert.Equal(t, 1.12, out.Results.Payload["band_gap"])
	assert.Equal(t, map[string]string{"band_gap": "eV"}, out.Results.Units)

	// Rendered input reached the runner's scratch dir via the command.
	assert.Contains(t, runner.lastSpec.Command, "calc")
	assert.Equal(t, DefaultTimeout, runner.lastSpec.Timeout)

	// The run and assets are durable.
	persisted, found, err := st.GetRun(context.Background(), out.Run.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, asset.StatusDone, persisted.Status)
	assert.Equal(t, "test", persisted.RunnerVersion)

	_, found, err = st.Get(context.Background(), out.Results.ID)
	require.NoError(t, err)
	assert.True(t, found)

	// Ledger edge order: input, PRODUCES, LOGS.
	edges, err := st.Query(context.Background(), store.EdgeFilter{RunID: out.Run.ID})
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, asset.RelUses, edges[0].Rel)
	assert.Equal(t, system.ID, edges[0].From)
	assert.Equal(t, asset.RelProduces, edges[1].Rel)
	assert.Equal(t, asset.RelLogs, edges[2].Rel)
}

func TestExecuteEmptyOutputUsesDefaults(t *testing.T) {
	// Runner writes nothing recognizable.
	e, _ := newTestEngine(t, &fakeRunner{})

	out, err := e.Execute(context.Background(), Request{
		Job:    "Materials Calculator",
		Params: map[string]any{"temperature": 300},
	})
	require.NoError(t, err)

	assert.Equal(t, asset.StatusDone, out.Run.Status)
	assert.Equal(t, "completed", out.Results.Payload["status"])
}

func TestExecuteIdenticalInputsYieldSameResultsID(t *testing.T) {
	newRunner := func() *fakeRunner {
		return &fakeRunner{files: map[string]string{"results.json": `{"band_gap": 1.12}`}}
	}
	e, _ := newTestEngine(t, newRunner())

	params := map[string]any{"temperature": 300, "mesh": []any{6, 6, 6}}
	first, err := e.Execute(context.Background(), Request{Job: "materials calculator", Params: params})
	require.NoError(t, err)
	second, err := e.Execute(context.Background(), Request{Job: "materials calculator", Params: params})
	require.NoError(t, err)

	assert.NotEqual(t, first.Run.ID, second.Run.ID)
	assert.Equal(t, first.Results.ID, second.Results.ID)
}

func TestExecuteUnknownJob(t *testing.T) {
	e, _ := newTestEngine(t, &fakeRunner{})

	_, err := e.Execute(context.Background(), Request{Job: "quantum widget"})
	require.Error(t, err)
	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeUnknownJob, re.Code)
	assert.Contains(t, re.Message, "Materials Calculator")
}

func TestExecuteToolFailureMarksRunError(t *testing.T) {
	e, st := newTestEngine(t, &fakeRunner{exitCode: 3})

	out, err := e.Execute(context.Background(), Request{
		Job:    "materials calculator",
		Params: map[string]any{"temperature": 300},
	})
	require.Error(t, err)
	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeExecFailed, re.Code)
	assert.Equal(t, "simulated failure", re.Stderr)

	// The run is terminal and persisted; no PRODUCES edge exists.
	require.NotNil(t, out.Run)
	assert.Equal(t, asset.StatusError, out.Run.Status)
	persisted, found, err := st.GetRun(context.Background(), out.Run.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, asset.StatusError, persisted.Status)

	edges, err := st.Query(context.Background(), store.EdgeFilter{RunID: out.Run.ID})
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestExecuteScratchDirCleanedUp(t *testing.T) {
	var scratch string
	runner := &fakeRunner{}
	e, _ := newTestEngine(t, runner)

	_, err := e.Execute(context.Background(), Request{
		Job:    "materials calculator",
		Params: map[string]any{"temperature": 300},
	})
	require.NoError(t, err)

	scratch = runner.lastSpec.Dir
	require.NotEmpty(t, scratch)
	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecuteScratchDirCleanedUpOnFailure(t *testing.T) {
	runner := &fakeRunner{exitCode: 1}
	e, _ := newTestEngine(t, runner)

	_, err := e.Execute(context.Background(), Request{
		Job:    "materials calculator",
		Params: map[string]any{"temperature": 300},
	})
	require.Error(t, err)

	_, statErr := os.Stat(runner.lastSpec.Dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecRunnerTimeout(t *testing.T) {
	runner := ExecRunner{Logger: zap.NewNop()}

	_, err := runner.Run(context.Background(), CommandSpec{
		Command: "sleep 5",
		Dir:     t.TempDir(),
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	runner := ExecRunner{Logger: zap.NewNop()}

	res, err := runner.Run(context.Background(), CommandSpec{
		Command: "echo hello; echo oops >&2",
		Dir:     t.TempDir(),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Zero(t, res.ExitCode)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	runner := ExecRunner{Logger: zap.NewNop()}

	res, err := runner.Run(context.Background(), CommandSpec{
		Command: "exit 7",
		Dir:     t.TempDir(),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
}

func TestExecRunnerMergesEnvironment(t *testing.T) {
	t.Setenv("MCG_TEST_AMBIENT", "ambient")
	runner := ExecRunner{Logger: zap.NewNop()}

	res, err := runner.Run(context.Background(), CommandSpec{
		Command: "echo $MCG_TEST_AMBIENT $MCG_TEST_DECLARED",
		Dir:     t.TempDir(),
		Env:     map[string]string{"MCG_TEST_DECLARED": "declared"},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "ambient declared\n", res.Stdout)
}
