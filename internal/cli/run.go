package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
	"github.com/materialscodegraph/materialscodegraph/internal/config"
	"github.com/materialscodegraph/materialscodegraph/internal/engine"
	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigDir string
	Ledger    string
	Params    []string
	Inputs    []string
}

// RunReport is the run command's output payload.
type RunReport struct {
	RunID     string         `json:"run_id"`
	Status    string         `json:"status"`
	Method    string         `json:"method"`
	ResultsID string         `json:"results_id"`
	Results   map[string]any `json:"results"`
	Edges     int            `json:"edges"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <job-name>",
		Short: "Execute a configured job and record its provenance",
		Long: `Execute one job to a terminal state.

The job definition is resolved by normalized name from the configuration
directory. Parameters are passed as repeated --param key=value flags;
values parse as JSON where possible, otherwise as strings. Input assets
already in the ledger are referenced by ID with --input.

Examples:
  mcg run "materials calculator" --param temperature=300 --param 'mesh=[8,8,8]'
  mcg run molecular_simulator --ledger runs.db --input Sa1b2c3 --param prod_ps=100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "", "job definition directory (default $MCG_CONFIG_DIR)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "provenance ledger path (default $MCG_LEDGER_PATH)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "job parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "input asset ID from the ledger (repeatable)")

	return cmd
}

func runJob(opts *RunOptions, job string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	settings, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading settings", err)
	}
	configDir := opts.ConfigDir
	if configDir == "" {
		configDir = settings.ConfigDir
	}
	ledgerPath := opts.Ledger
	if ledgerPath == "" {
		ledgerPath = settings.LedgerPath
	}

	params, err := parseParams(opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "parsing --param flags", err)
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "building logger", err)
	}
	defer logger.Sync()

	reg, err := registry.Open(configDir, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading job definitions", err)
	}

	st, err := openStore(ledgerPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening ledger", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("closing ledger", zap.Error(closeErr))
		}
	}()

	inputs, err := st.GetMany(ctx, opts.Inputs)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving input assets", err)
	}
	if len(inputs) != len(opts.Inputs) {
		return WrapExitError(ExitCommandError,
			fmt.Sprintf("only %d of %d input assets found in ledger", len(inputs), len(opts.Inputs)), nil)
	}
	for _, in := range inputs {
		if err := asset.Validate(in); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("input asset %s", in.ID), err)
		}
	}

	eng := engine.New(reg, st, logger,
		engine.WithDefaultTimeout(settings.DefaultTimeout))

	out, err := eng.Execute(ctx, engine.Request{Job: job, Inputs: inputs, Params: params})
	if err != nil {
		code := "RUN_FAILED"
		var re *engine.RunError
		if errors.As(err, &re) {
			code = string(re.Code)
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "run failed", err)
	}

	return formatter.Success(RunReport{
		RunID:     out.Run.ID,
		Status:    string(out.Run.Status),
		Method:    out.Method,
		ResultsID: out.Results.ID,
		Results:   out.Results.Payload,
		Edges:     len(out.Edges),
	})
}

// String renders the report for text output.
func (r RunReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s %s\n", r.RunID, r.Status)
	fmt.Fprintf(&b, "  method:  %s\n", r.Method)
	fmt.Fprintf(&b, "  results: %s\n", r.ResultsID)
	keys := make([]string, 0, len(r.Results))
	for k := range r.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s: %v\n", k, r.Results[k])
	}
	fmt.Fprintf(&b, "  edges:   %d", r.Edges)
	return b.String()
}

// parseParams turns key=value flags into a parameter bag. Values parse
// as JSON when they look like it, otherwise stay strings, so both
// --param T=300 and --param note=hello work.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("malformed parameter %q, want key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		params[key] = v
	}
	return params, nil
}
