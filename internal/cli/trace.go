package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/materialscodegraph/materialscodegraph/internal/config"
	"github.com/materialscodegraph/materialscodegraph/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Ledger string
}

// TraceEdge is one lineage fact in the trace output.
type TraceEdge struct {
	From     string `json:"from"`
	FromKind string `json:"from_kind,omitempty"`
	Rel      string `json:"rel"`
	To       string `json:"to"`
	ToKind   string `json:"to_kind,omitempty"`
	T        string `json:"t"`
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	RunID  string      `json:"run_id"`
	Job    string      `json:"job,omitempty"`
	Status string      `json:"status,omitempty"`
	Edges  []TraceEdge `json:"edges"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show lineage for a run",
		Long: `Show every provenance edge touching a run, in ledger order.

Edge order within a run is fixed: input edges first (USES for System
inputs, CONFIGURES otherwise), then the PRODUCES edge, then the LOGS
edge.

Examples:
  mcg trace R1a2b3c4d
  mcg trace R1a2b3c4d --ledger runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "provenance ledger path (default $MCG_LEDGER_PATH)")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	settings, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading settings", err)
	}
	ledgerPath := opts.Ledger
	if ledgerPath == "" {
		ledgerPath = settings.LedgerPath
	}

	st, err := openStore(ledgerPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening ledger", err)
	}
	defer st.Close()

	edges, err := st.Query(ctx, store.EdgeFilter{RunID: runID})
	if err != nil {
		return WrapExitError(ExitCommandError, "querying ledger", err)
	}
	if len(edges) == 0 {
		_ = formatter.Error("NO_EDGES", fmt.Sprintf("no edges touch %s", runID), nil)
		return WrapExitError(ExitFailure, "nothing to trace", nil)
	}

	result := TraceResult{RunID: runID}
	if run, found, err := st.GetRun(ctx, runID); err == nil && found {
		result.Job = run.Kind
		result.Status = string(run.Status)
	}

	for _, e := range edges {
		te := TraceEdge{From: e.From, Rel: string(e.Rel), To: e.To, T: e.T}
		if a, found, err := st.Get(ctx, e.From); err == nil && found {
			te.FromKind = string(a.Kind)
		}
		if a, found, err := st.Get(ctx, e.To); err == nil && found {
			te.ToKind = string(a.Kind)
		}
		result.Edges = append(result.Edges, te)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(formatTrace(result))
}

// formatTrace renders the trace as aligned text.
func formatTrace(r TraceResult) string {
	var sb strings.Builder
	if r.Job != "" {
		fmt.Fprintf(&sb, "Trace for %s (%s, %s)\n", r.RunID, r.Job, r.Status)
	} else {
		fmt.Fprintf(&sb, "Trace for %s\n", r.RunID)
	}
	for _, e := range r.Edges {
		fmt.Fprintf(&sb, "  %s %s--%s--> %s %s  @ %s\n",
			e.From, kindTag(e.FromKind), e.Rel, e.To, kindTag(e.ToKind), e.T)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func kindTag(kind string) string {
	if kind == "" {
		return "(Run)"
	}
	return "(" + kind + ")"
}
