// Package harness runs conformance scenarios against the execution
// engine. A scenario bundles a job definition, parameters, seeded
// inputs, and a scripted tool; the harness executes it in an isolated
// ledger with a deterministic clock and run IDs, so a scenario replays
// to the same trace every time. Golden comparison redacts content
// hashes and pins the trace structure.
package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
	"github.com/materialscodegraph/materialscodegraph/internal/engine"
	"github.com/materialscodegraph/materialscodegraph/internal/registry"
	"github.com/materialscodegraph/materialscodegraph/internal/store"
	"github.com/materialscodegraph/materialscodegraph/internal/testutil"
)

// epoch anchors every scenario clock. Each engine clock read advances
// one second past it.
var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const runnerVersion = "harness"

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every expect clause held.
	Pass bool

	// Run is the terminal run record, nil only on infrastructure failure.
	Run *asset.Run

	// Method, Results, and Edges mirror the engine outcome on success.
	Method  string
	Results asset.Asset
	Edges   []asset.Edge

	// Err is the engine's error when the run failed.
	Err error

	// Errors lists expectation failures. Empty when Pass is true.
	Errors []string
}

// AddError records an expectation failure and fails the result.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario in a fresh ledger and evaluates its
// expectations. The returned error covers infrastructure problems
// only; run failures land in Result.Err and the expect clauses.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "mcg-harness-")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: scratch dir: %w", scenario.Name, err)
	}
	defer os.RemoveAll(dir)

	configDir := filepath.Join(dir, "configs")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("scenario %s: config dir: %w", scenario.Name, err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "job.yaml"), []byte(scenario.Definition), 0o644); err != nil {
		return nil, fmt.Errorf("scenario %s: write definition: %w", scenario.Name, err)
	}

	reg, err := registry.Open(configDir, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: load definition: %w", scenario.Name, err)
	}

	st, err := store.OpenFile(filepath.Join(dir, "ledger.json"))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: open ledger: %w", scenario.Name, err)
	}
	defer st.Close()

	inputs := make([]asset.Asset, 0, len(scenario.Inputs))
	for i, in := range scenario.Inputs {
		payload, ok := normalize(in.Payload).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scenario %s: inputs[%d]: payload is not an object", scenario.Name, i)
		}
		a, err := asset.New(asset.Kind(in.Kind), payload)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: inputs[%d]: %w", scenario.Name, i, err)
		}
		if err := asset.Validate(a); err != nil {
			return nil, fmt.Errorf("scenario %s: inputs[%d]: %w", scenario.Name, i, err)
		}
		a.Units = in.Units
		if _, err := st.Put(ctx, a); err != nil {
			return nil, fmt.Errorf("scenario %s: seed input: %w", scenario.Name, err)
		}
		inputs = append(inputs, a)
	}

	job := scenario.Job
	if job == "" {
		job = reg.Names()[0]
	}

	var ids testutil.RunIDs
	eng := engine.New(reg, st, zap.NewNop(),
		engine.WithRunner(&scriptRunner{script: scenario.Tool}),
		engine.WithClock(testutil.NewSteppingClock(epoch, time.Second)),
		engine.WithRunIDs(ids.Next),
		engine.WithRunnerVersion(runnerVersion))

	params, _ := normalize(scenario.Params).(map[string]any)
	out, err := eng.Execute(ctx, engine.Request{Job: job, Inputs: inputs, Params: params})

	result := &Result{Pass: true, Err: err}
	if out != nil {
		result.Run = out.Run
		result.Method = out.Method
		result.Results = out.Results
		result.Edges = out.Edges
	}
	evaluate(scenario.Expect, result)
	return result, nil
}

// scriptRunner stands in for the subprocess runner: it drops the
// scripted files into the scratch directory and reports the scripted
// exit code.
type scriptRunner struct {
	script ToolScript
}

func (r *scriptRunner) Run(ctx context.Context, spec engine.CommandSpec) (engine.CommandResult, error) {
	for name, content := range r.script.Files {
		if err := os.WriteFile(filepath.Join(spec.Dir, name), []byte(content), 0o644); err != nil {
			return engine.CommandResult{}, fmt.Errorf("script file %s: %w", name, err)
		}
	}
	return engine.CommandResult{ExitCode: r.script.ExitCode}, nil
}
