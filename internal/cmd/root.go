package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for reqtrace
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reqtrace",
		Short: "Requirement traceability for hit test specifications",
		Long: `reqtrace scans directories for test specification files, collects every
test that declares a requirement, and reports them grouped by module with
stable F<group>.<item> labels.

Collected runs can be indexed into a local SQLite database and queried by
issue, design document or label.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewCollectCommand())
	cmd.AddCommand(NewCheckCommand())
	cmd.AddCommand(NewIndexCommand())
	cmd.AddCommand(NewQueryCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}
