package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
	"github.com/materialscodegraph/materialscodegraph/internal/registry"
	"github.com/materialscodegraph/materialscodegraph/internal/store"
)

// Engine is the synchronous execution pipeline. One Execute call takes
// a run from queued to a terminal state and persists the outcome.
//
// Thread-safety model: Execute is safe to call concurrently only when
// the underlying store serializes writers (the SQLite store does; the
// file store serializes internally). The engine itself holds no mutable
// state between calls.
type Engine struct {
	registry *registry.Registry
	store    store.Store
	runner   Runner
	clock    Clock
	logger   *zap.Logger

	defaultTimeout time.Duration
	runnerVersion  string
	runID          func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner substitutes the subprocess runner. Tests use a fake that
// writes output files without launching anything.
func WithRunner(r Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithClock substitutes the wall clock for deterministic timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDefaultTimeout overrides the engine-wide timeout fallback.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Engine) { e.defaultTimeout = d }
}

// WithRunnerVersion stamps runs with a version string for provenance.
func WithRunnerVersion(v string) Option {
	return func(e *Engine) { e.runnerVersion = v }
}

// WithRunIDs substitutes the run ID source. Runs normally draw random
// IDs; deterministic IDs make golden traces reproducible.
func WithRunIDs(gen func() string) Option {
	return func(e *Engine) { e.runID = gen }
}

// New creates an Engine over a registry and a provenance store.
func New(reg *registry.Registry, st store.Store, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		registry:       reg,
		store:          st,
		clock:          SystemClock{},
		logger:         logger,
		defaultTimeout: DefaultTimeout,
	}
	e.runner = ExecRunner{Logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one execution submission.
type Request struct {
	Job    string
	Inputs []asset.Asset
	Params map[string]any
}

// Outcome reports a finished run. Run is terminal; on success Results
// holds the produced Results asset and Edges the appended lineage.
type Outcome struct {
	Run     *asset.Run
	Method  string
	Results asset.Asset
	Extra   []asset.Asset
	Log     asset.Asset
	Edges   []asset.Edge
}

// Execute runs one job to a terminal state.
//
// The run record is persisted at every status transition, so a crashed
// or failed run is inspectable afterwards. Assets and edges are written
// only after materialization fully succeeds: a failed run never leaves
// a dangling PRODUCES edge. The per-run scratch directory is removed on
// every exit path.
func (e *Engine) Execute(ctx context.Context, req Request) (*Outcome, error) {
	def, err := e.registry.Find(req.Job)
	if err != nil {
		return nil, &RunError{Code: ErrCodeUnknownJob, Message: err.Error(), Job: req.Job}
	}

	run := asset.NewRun(def.Name)
	if e.runID != nil {
		run.ID = e.runID()
	}
	run.RunnerVersion = e.runnerVersion
	if err := e.store.PutRun(ctx, *run); err != nil {
		return nil, fmt.Errorf("persist queued run: %w", err)
	}

	if err := run.Start(e.clock.Now()); err != nil {
		return nil, err
	}
	if err := e.store.PutRun(ctx, *run); err != nil {
		return nil, fmt.Errorf("persist running run: %w", err)
	}

	outcome, err := e.execute(ctx, def, run, req)
	if err != nil {
		if ferr := run.Finish(asset.StatusError, e.clock.Now()); ferr == nil {
			if perr := e.store.PutRun(ctx, *run); perr != nil {
				e.logger.Error("persisting failed run", zap.String("run", run.ID), zap.Error(perr))
			}
		}
		e.logger.Error("run failed",
			zap.String("run", run.ID),
			zap.String("job", req.Job),
			zap.Error(err))
		return &Outcome{Run: run}, err
	}

	if err := run.Finish(asset.StatusDone, e.clock.Now()); err != nil {
		return nil, err
	}
	if err := e.store.PutRun(ctx, *run); err != nil {
		return nil, fmt.Errorf("persist finished run: %w", err)
	}
	outcome.Run = run

	e.logger.Info("run complete",
		zap.String("run", run.ID),
		zap.String("job", def.Name),
		zap.String("method", outcome.Method),
		zap.String("results", outcome.Results.ID))
	return outcome, nil
}

// execute is the fallible middle of the pipeline: everything between
// the running and terminal transitions.
func (e *Engine) execute(ctx context.Context, def *registry.Definition, run *asset.Run, req Request) (*Outcome, error) {
	methodName, err := ResolveMethod(def, req.Params, e.logger)
	if err != nil {
		return nil, err
	}
	method, ok := def.Method(methodName)
	if !ok {
		return nil, NewUnknownMethodError(def.Name, methodName, def.MethodNames())
	}
	e.logger.Info("method resolved",
		zap.String("run", run.ID),
		zap.String("job", def.Name),
		zap.String("method", methodName))

	scratch, err := os.MkdirTemp("", "mcg-run-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			e.logger.Warn("cleaning scratch dir", zap.String("dir", scratch), zap.Error(rmErr))
		}
	}()

	tmpl, err := methodTemplate(def, method)
	if err != nil {
		return nil, err
	}

	renderCtx := BuildContext(def, method, req.Inputs, req.Params, e.clock, e.logger)

	const inputFile = "input.txt"
	if tmpl != "" {
		rendered := RenderTemplate(tmpl, renderCtx)
		if err := os.WriteFile(filepath.Join(scratch, inputFile), []byte(rendered), 0o644); err != nil {
			return nil, fmt.Errorf("write rendered input: %w", err)
		}
	}

	command, env, err := buildCommand(def.Execution, inputFile)
	if err != nil {
		return nil, err
	}
	spec := CommandSpec{
		Command: command,
		Dir:     scratch,
		Env:     env,
		Timeout: effectiveTimeout(method, def.Execution, e.defaultTimeout),
	}

	result, err := e.runner.Run(ctx, spec)
	if err != nil {
		var re *RunError
		if errors.As(err, &re) {
			re.Job = def.Name
			re.Method = methodName
		}
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, &RunError{
			Code:    ErrCodeExecFailed,
			Message: fmt.Sprintf("command exited with code %d", result.ExitCode),
			Job:     def.Name,
			Method:  methodName,
			Stderr:  result.Stderr,
		}
	}

	parsed, err := ParseOutputs(scratch, def.Output, e.logger)
	if err != nil {
		return nil, err
	}

	mat := Materialize(def, methodName, *run, req.Inputs, parsed, req.Params, e.clock.Now())

	for _, a := range append([]asset.Asset{mat.Results, mat.Log}, mat.Extra...) {
		if _, err := e.store.Put(ctx, a); err != nil {
			return nil, fmt.Errorf("persist asset %s: %w", a.ID, err)
		}
	}
	if _, err := e.store.Append(ctx, mat.Edges); err != nil {
		return nil, fmt.Errorf("append lineage: %w", err)
	}

	return &Outcome{
		Method:  methodName,
		Results: mat.Results,
		Extra:   mat.Extra,
		Log:     mat.Log,
		Edges:   mat.Edges,
	}, nil
}
