package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationReport summarizes a validated configuration directory.
type ValidationReport struct {
	Dir         string   `json:"dir"`
	Definitions []string `json:"definitions"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate job definition documents",
		Long: `Load every definition document in a directory, failing on the first
malformed one. Unknown builder, transform, parser, and condition kinds
are load errors, not silent no-ops.

Example:
  mcg validate ./configs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	reg, err := registry.Open(dir, zap.NewNop())
	if err != nil {
		_ = formatter.Error("INVALID_DEFINITION", err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	names := reg.Names()
	if opts.Format == "json" {
		return formatter.Success(ValidationReport{Dir: dir, Definitions: names})
	}
	return formatter.Success(fmt.Sprintf("ok: %d definition(s) valid", len(names)))
}
