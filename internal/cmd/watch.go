package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/reqtrace/internal/display"
	"github.com/harrison/reqtrace/internal/filelock"
	"github.com/harrison/reqtrace/internal/watch"
)

// NewWatchCommand creates the watch subcommand
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directory...]",
		Short: "Re-collect requirements whenever a spec file changes",
		Long: `Run a collection, then watch the scanned directories and run a fresh
collection each time spec files change (debounced by watch.debounce).
Each run prints a one-line summary; with --output the full report is
rewritten after every run.

Stop with Ctrl+C.`,
		RunE:         runWatch,
		SilenceUsage: true,
	}

	addCollectionFlags(cmd)
	cmd.Flags().Duration("debounce", 0, "Quiet period before re-collecting (overrides watch.debounce)")
	cmd.Flags().StringP("output", "o", "", "Rewrite this report file after every run")
	cmd.Flags().StringP("format", "f", display.FormatYAML, "Report format for --output: text, yaml or json")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if !display.ValidFormat(format) {
		return fmt.Errorf("invalid --format %q, must be one of: text, yaml, json", format)
	}
	output, _ := cmd.Flags().GetString("output")

	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	debounce := s.cfg.Watch.Debounce
	if cmd.Flags().Changed("debounce") {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(watch.Options{
		Dirs:          s.dirs,
		SpecFilenames: s.cfg.SpecFilenames,
		Debounce:      debounce,
	}, s.log)
	if err != nil {
		return err
	}

	runOnce := func(ctx context.Context, changed []string) error {
		s.recorder.Reset()
		for _, path := range changed {
			s.log.Debugf("changed: %s", path)
		}

		out := cmd.OutOrStdout()
		stamp := time.Now().Format("15:04:05")

		groups, err := s.collect(ctx)
		if err != nil {
			// A broken spec file should not end the session
			fmt.Fprintf(out, "[%s] ✗ %v\n", stamp, err)
			return nil
		}
		fmt.Fprintf(out, "[%s] ✓ %d requirements in %d groups (%d diagnostics)\n",
			stamp, groups.Count(), groups.Len(), s.recorder.Count("error"))

		if output == "" {
			return nil
		}
		var buf bytes.Buffer
		if err := display.Write(&buf, format, groups, nil); err != nil {
			return err
		}
		if err := filelock.LockAndWrite(ctx, output, buf.Bytes()); err != nil {
			s.log.Errorf("failed to write %s: %v", output, err)
		}
		return nil
	}

	if err := runOnce(ctx, nil); err != nil {
		return err
	}
	return w.Run(ctx, runOnce)
}
