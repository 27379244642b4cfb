package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// DefaultTimeout bounds a run when neither the method nor the
// definition declares one.
const DefaultTimeout = 60 * time.Second

// CommandSpec is one fully-resolved subprocess invocation. The command
// line runs through the shell so declared templates can use pipes and
// redirection.
type CommandSpec struct {
	Command string
	Dir     string            // per-run scratch directory
	Env     map[string]string // merged over the ambient environment
	Timeout time.Duration
}

// CommandResult captures a finished subprocess.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes a CommandSpec. ExecRunner is the production
// implementation; tests substitute a fake that writes output files.
type Runner interface {
	Run(ctx context.Context, spec CommandSpec) (CommandResult, error)
}

// ExecRunner runs commands through /bin/sh on the host.
type ExecRunner struct {
	Logger *zap.Logger
}

// Run executes the command, bounded by spec.Timeout. A timeout returns
// a RunError with code EXEC_TIMEOUT; a non-zero exit returns the result
// with the exit code and no error, leaving the verdict to the caller.
func (r ExecRunner) Run(ctx context.Context, spec CommandSpec) (CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", spec.Command)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Logger.Debug("executing", zap.String("command", spec.Command), zap.String("dir", spec.Dir))
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return CommandResult{}, &RunError{
			Code:    ErrCodeExecTimeout,
			Message: fmt.Sprintf("command exceeded timeout of %s", spec.Timeout),
			Stderr:  stderr.String(),
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return CommandResult{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}, nil
		}
		return CommandResult{}, fmt.Errorf("start command: %w", err)
	}

	return CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// buildCommand turns a backend configuration and a rendered input file
// into the command line to run. The input file path is relative to the
// scratch directory, which is the working directory for all backends.
func buildCommand(cfg registry.ExecutionConfig, inputFile string) (string, map[string]string, error) {
	switch cfg.Mode {
	case registry.BackendLocal:
		tpl := cfg.Local.CommandTemplate
		if tpl == "" {
			tpl = "{executable} {input_file}"
		}
		cmd := strings.NewReplacer(
			"{executable}", cfg.Local.Executable,
			"{input_file}", inputFile,
		).Replace(tpl)
		return cmd, cfg.Local.Environment, nil

	case registry.BackendDocker:
		inner := cfg.Docker.Command
		if inner == "" {
			inner = inputFile
		}
		inner = strings.ReplaceAll(inner, "{input_file}", inputFile)
		cmd := fmt.Sprintf("docker run --rm -v \"$PWD\":/work -w /work %s %s", cfg.Docker.Image, inner)
		return cmd, cfg.Docker.Environment, nil

	case registry.BackendHPC:
		tpl := cfg.HPC.SubmitTemplate
		if tpl == "" {
			tpl = "sbatch --wait {input_file}"
		}
		cmd := strings.NewReplacer(
			"{executable}", cfg.HPC.Executable,
			"{input_file}", inputFile,
		).Replace(tpl)
		return cmd, cfg.HPC.Environment, nil
	}
	return "", nil, fmt.Errorf("unknown execution mode %q", cfg.Mode)
}

// effectiveTimeout applies the precedence: method, then definition,
// then DefaultTimeout.
func effectiveTimeout(method registry.Method, cfg registry.ExecutionConfig, fallback time.Duration) time.Duration {
	if method.Timeout > 0 {
		return method.Timeout
	}
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeout
}

// mergeEnv overlays declared variables on the ambient environment.
func mergeEnv(ambient []string, declared map[string]string) []string {
	if len(declared) == 0 {
		return ambient
	}
	merged := make([]string, 0, len(ambient)+len(declared))
	for _, kv := range ambient {
		key := kv[:strings.IndexByte(kv, '=')+1]
		if key == "" {
			continue
		}
		if _, ok := declared[strings.TrimSuffix(key, "=")]; ok {
			continue
		}
		merged = append(merged, kv)
	}
	for k, v := range declared {
		merged = append(merged, k+"="+v)
	}
	return merged
}
