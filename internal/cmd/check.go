package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/reqtrace/internal/check"
	"github.com/harrison/reqtrace/internal/display"
)

// NewCheckCommand creates the check subcommand
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [directory...]",
		Short: "Check requirement traceability",
		Long: `Collect requirements and check that each one is traceable:
  - requirement text is not empty
  - at least one design document and one issue are listed
  - issues look like #1234 (or owner/repo#1234, or a commit hash)
  - names are unique within a group
  - design documents exist under docs_dirs (when configured)

Exit code: 0 if every requirement passes, 1 otherwise.
With --strict, collection diagnostics also fail the check.`,
		RunE:         runCheck,
		SilenceUsage: true,
	}

	addCollectionFlags(cmd)
	cmd.Flags().Bool("strict", false, "Fail when collection emitted diagnostics")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")

	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()

	groups, err := s.collect(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "✗ %v\n", err)
		return err
	}
	fmt.Fprintf(out, "✓ Collected %d requirements in %d groups from %d directories\n",
		groups.Count(), groups.Len(), len(s.dirs))

	resolver, err := s.resolver()
	if err != nil {
		return err
	}

	findings := check.Run(groups, resolver)
	diagnostics := s.recorder.Count("error")

	if diagnostics > 0 {
		display.WarnDiagnostics(diagnostics, diagnosticFiles(groups)).Display(s.stderr)
	}
	if resolver.Enabled() {
		fmt.Fprintf(out, "✓ Resolved design documents against %d docs dir(s)\n", len(s.cfg.DocsDirs))
	}

	failures := len(findings)
	if strict {
		failures += diagnostics
	}

	if len(findings) == 0 {
		fmt.Fprintf(out, "✓ All requirements are traceable\n")
	} else {
		fmt.Fprintf(out, "\n✗ Traceability check failed\n")
		for _, f := range findings {
			fmt.Fprintf(out, "  ✗ [%s] %s\n", f.Kind, f)
		}
		fmt.Fprintf(out, "\n")
		for _, kc := range check.CountByKind(findings) {
			fmt.Fprintf(out, "  %-18s %d\n", kc.Kind, kc.Count)
		}
	}
	if strict && diagnostics > 0 {
		fmt.Fprintf(out, "✗ %d collection diagnostic(s) (--strict)\n", diagnostics)
	}

	if failures == 0 {
		fmt.Fprintf(out, "\n✓ Check passed!\n")
		return nil
	}
	fmt.Fprintf(out, "\nFound %d problem(s)!\n", failures)
	return fmt.Errorf("check failed with %d problem(s)", failures)
}
