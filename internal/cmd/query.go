package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/reqtrace/internal/config"
	"github.com/harrison/reqtrace/internal/display"
	"github.com/harrison/reqtrace/internal/index"
	"github.com/harrison/reqtrace/internal/models"
)

// NewQueryCommand creates the query subcommand
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query indexed requirements by issue, design document or label",
		Long: `Search a run stored by 'reqtrace index'. Exactly one of --issue,
--design or --label is required unless --runs is given.

Examples:
  reqtrace query --issue '#1234'
  reqtrace query --design Diffusion.md --format yaml
  reqtrace query --label F2.3 --run 6f1c...
  reqtrace query --runs`,
		Args:         cobra.NoArgs,
		RunE:         runQuery,
		SilenceUsage: true,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .reqtrace/config.yaml in the project root)")
	cmd.Flags().String("db", "", "Index database path (overrides index.db_path)")
	cmd.Flags().String("run", "", "Run ID to query (default: latest run)")
	cmd.Flags().String("issue", "", "Find requirements referencing this issue")
	cmd.Flags().String("design", "", "Find requirements referencing this design document")
	cmd.Flags().String("label", "", "Find the requirement with this label")
	cmd.Flags().Bool("runs", false, "List stored runs instead of querying")
	cmd.Flags().StringP("format", "f", display.FormatText, "Output format: text, yaml or json")

	return cmd
}

func runQuery(cmd *cobra.Command, _ []string) error {
	issue, _ := cmd.Flags().GetString("issue")
	designToken, _ := cmd.Flags().GetString("design")
	label, _ := cmd.Flags().GetString("label")
	listRuns, _ := cmd.Flags().GetBool("runs")
	format, _ := cmd.Flags().GetString("format")

	if !display.ValidFormat(format) {
		return fmt.Errorf("invalid --format %q, must be one of: text, yaml, json", format)
	}

	selected := 0
	for _, v := range []string{issue, designToken, label} {
		if v != "" {
			selected++
		}
	}
	if !listRuns && selected != 1 {
		return errors.New("exactly one of --issue, --design or --label is required")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	store, err := openIndex(indexPath(cmd, root, cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listRuns {
		runs, err := store.ListRuns(ctx, 0)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %s  %d requirements in %d groups  %v\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Requirements, r.Groups, r.Directories)
		}
		return nil
	}

	runID, _ := cmd.Flags().GetString("run")
	if runID == "" {
		latest, err := store.LatestRun(ctx)
		if err != nil {
			if errors.Is(err, index.ErrNoRuns) {
				return fmt.Errorf("%w: run 'reqtrace index' first", err)
			}
			return err
		}
		runID = latest.ID
	} else if _, err := store.GetRun(ctx, runID); err != nil {
		return err
	}

	var reqs []*models.Requirement
	switch {
	case issue != "":
		reqs, err = store.ByIssue(ctx, runID, issue)
	case designToken != "":
		reqs, err = store.ByDesign(ctx, runID, designToken)
	default:
		reqs, err = store.ByLabel(ctx, runID, label)
	}
	if err != nil {
		return err
	}

	if format == display.FormatText {
		for _, req := range reqs {
			fmt.Fprintf(out, "[%s] %s\n", req.Label, req)
		}
		fmt.Fprintf(out, "%d match(es) in run %s\n", len(reqs), runID)
		return nil
	}
	return writeRequirements(cmd, format, reqs)
}

// writeRequirements encodes a flat requirement list as yaml or json.
func writeRequirements(cmd *cobra.Command, format string, reqs []*models.Requirement) error {
	if reqs == nil {
		reqs = []*models.Requirement{}
	}
	if format == display.FormatYAML {
		return display.EncodeYAML(cmd.OutOrStdout(), reqs)
	}
	return display.EncodeJSON(cmd.OutOrStdout(), reqs)
}
