package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/reqtrace/internal/collector"
	"github.com/harrison/reqtrace/internal/display"
	"github.com/harrison/reqtrace/internal/filelock"
)

// NewCollectCommand creates the collect subcommand
func NewCollectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect [directory...]",
		Short: "Collect requirements from test specification files",
		Long: `Scan directories for test specification files and print every
requirement, grouped by the first directory below each scanned directory
and labeled F<group>.<item>.

Directories default to the 'directories' list in .reqtrace/config.yaml.
Diagnostics about missing 'design' or 'issues' parameters go to stderr.

Examples:
  reqtrace collect test/tests
  reqtrace collect modules/*/test/tests --format yaml
  reqtrace collect --output requirements.json --format json`,
		RunE:         runCollect,
		SilenceUsage: true,
	}

	addCollectionFlags(cmd)
	cmd.Flags().StringP("format", "f", display.FormatText, "Output format: text, yaml or json")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().Bool("progress", false, "Show per-directory progress on stderr")

	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if !display.ValidFormat(format) {
		return fmt.Errorf("invalid --format %q, must be one of: text, yaml, json", format)
	}
	output, _ := cmd.Flags().GetString("output")
	showProgress, _ := cmd.Flags().GetBool("progress")

	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	var opts []collector.Option
	var progress *display.ProgressIndicator
	if showProgress {
		progress = display.NewProgressIndicator(s.stderr, len(s.dirs))
		progress.Start()
		opts = append(opts, collector.WithDirectoryHook(progress.Step))
	}

	groups, err := s.collect(cmd.Context(), opts...)
	if err != nil {
		return err
	}
	if progress != nil {
		progress.Complete(groups.Count(), groups.Len())
	}

	var lookup display.DocLookup
	if format == display.FormatText {
		resolver, err := s.resolver()
		if err != nil {
			return err
		}
		if resolver.Enabled() {
			lookup = func(token string) (string, bool) {
				doc, ok := resolver.Resolve(token)
				if !ok {
					return "", false
				}
				return doc.Title, true
			}
		}
	}

	if n := s.recorder.Count("error"); n > 0 {
		display.WarnDiagnostics(n, diagnosticFiles(groups)).Display(s.stderr)
	}

	if output == "" {
		return display.Write(cmd.OutOrStdout(), format, groups, lookup)
	}

	var buf bytes.Buffer
	if err := display.Write(&buf, format, groups, lookup); err != nil {
		return err
	}
	if err := filelock.LockAndWrite(cmd.Context(), output, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(s.stderr, "✓ Wrote %d requirements to %s\n", groups.Count(), output)
	return nil
}
