package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/materialscodegraph/materialscodegraph/internal/config"
	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

// JobsOptions holds flags for the jobs command.
type JobsOptions struct {
	*RootOptions
	ConfigDir string
}

// JobSummary describes one loaded definition.
type JobSummary struct {
	Name    string   `json:"name"`
	Source  string   `json:"source"`
	Methods []string `json:"methods"`
	Mode    string   `json:"mode"`
}

// NewJobsCommand creates the jobs command.
func NewJobsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JobsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List loaded job definitions",
		Long: `List every job definition in the configuration directory with its
methods and execution backend.

Example:
  mcg jobs --config-dir ./configs
  mcg jobs --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listJobs(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "", "job definition directory (default $MCG_CONFIG_DIR)")

	return cmd
}

func listJobs(opts *JobsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	settings, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "loading settings", err)
	}
	configDir := opts.ConfigDir
	if configDir == "" {
		configDir = settings.ConfigDir
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

	var summaries []JobSummary
	for _, name := range reg.Names() {
		def, err := reg.Find(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "listing definitions", err)
		}
		summaries = append(summaries, JobSummary{
			Name:    def.Name,
			Source:  def.Source,
			Methods: def.MethodNames(),
			Mode:    string(def.Execution.Mode),
		})
	}

	if opts.Format == "json" {
		return formatter.Success(summaries)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d job definition(s) in %s\n", len(summaries), configDir)
	for _, s := range summaries {
		fmt.Fprintf(&sb, "  %-30s %s backend, methods: %s\n", s.Name, s.Mode, strings.Join(s.Methods, ", "))
	}
	return formatter.Success(strings.TrimRight(sb.String(), "\n"))
}
