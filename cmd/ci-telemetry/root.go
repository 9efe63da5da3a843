package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. environ replaces the process
// environment when non-nil.
func newRootCmd(environ map[string]string) *cobra.Command {
	root := &cobra.Command{
		Use:   "ci-telemetry",
		Short: "Summarize CI process and file traces",
		Long: `ci-telemetry reads the event logs written by the CI process and file
tracers, pairs process starts with their exits, ranks the workspace files
read during the job and reports the result as markdown, JSON or
OpenTelemetry spans.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("ci-telemetry {{.Version}} (commit: %s, built: %s)\n", commit, date))

	root.AddCommand(newReportCmd(environ), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ci-telemetry %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
