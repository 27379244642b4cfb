package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
	"github.com/materialscodegraph/materialscodegraph/internal/config"
	"github.com/materialscodegraph/materialscodegraph/internal/store"
)

// LineageOptions holds flags for the lineage command.
type LineageOptions struct {
	*RootOptions
	Ledger    string
	Direction string
	Depth     int
	Rels      []string
}

// LineageResult holds the lineage output for one node.
type LineageResult struct {
	Root      string      `json:"root"`
	Direction string      `json:"direction"`
	Edges     []TraceEdge `json:"edges"`
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LineageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lineage <id>",
		Short: "Show transitive lineage of an asset or run",
		Long: `Walk the provenance graph from one node and print every edge
reached, in ledger order. Ancestors answers "what went into this";
descendants answers "what came out of this".

Examples:
  mcg lineage R1a2b3c
  mcg lineage Sa1b2c3 --direction descendants --depth 2
  mcg lineage R1a2b3c --rel USES --rel PRODUCES --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "provenance ledger path (default $MCG_LEDGER_PATH)")
	cmd.Flags().StringVar(&opts.Direction, "direction", "ancestors", "walk direction (ancestors|descendants)")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "maximum walk depth (0 = unbounded)")
	cmd.Flags().StringArrayVar(&opts.Rels, "rel", nil, "restrict to relation (repeatable)")

	return cmd
}

func runLineage(opts *LineageOptions, root string, cmd *cobra.Command) error {
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

	rels := make([]asset.Relation, len(opts.Rels))
	for i, rel := range opts.Rels {
		rels[i] = asset.Relation(strings.ToUpper(rel))
	}

	query := store.ClosureQuery{
		Root:      root,
		Direction: store.Direction(opts.Direction),
		Rels:      rels,
		MaxDepth:  opts.Depth,
	}
	if err := query.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid lineage query", err)
	}

	st, err := openStore(ledgerPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening ledger", err)
	}
	defer st.Close()

	edges, err := st.Closure(ctx, query)
	if err != nil {
		return WrapExitError(ExitCommandError, "walking lineage", err)
	}
	if len(edges) == 0 {
		_ = formatter.Error("NO_LINEAGE", fmt.Sprintf("no %s edges reach %s", opts.Direction, root), nil)
		return WrapExitError(ExitFailure, "nothing to report", nil)
	}

	result := LineageResult{Root: root, Direction: opts.Direction}
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

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s of %s (%d edge(s))\n", opts.Direction, root, len(result.Edges))
	for _, e := range result.Edges {
		fmt.Fprintf(&sb, "  %s %s--%s--> %s %s  @ %s\n",
			e.From, kindTag(e.FromKind), e.Rel, e.To, kindTag(e.ToKind), e.T)
	}
	return formatter.Success(strings.TrimRight(sb.String(), "\n"))
}
