package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/reqtrace/internal/config"
	"github.com/harrison/reqtrace/internal/filelock"
	"github.com/harrison/reqtrace/internal/index"
)

// NewIndexCommand creates the index subcommand
func NewIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [directory...]",
		Short: "Collect requirements and store them in the SQLite index",
		Long: `Collect requirements and save the labeled result as a new run in the
index database (index.db_path, default .reqtrace/index.db). Use
'reqtrace query' to search the most recent run.`,
		RunE:         runIndex,
		SilenceUsage: true,
	}

	addCollectionFlags(cmd)
	cmd.Flags().String("db", "", "Index database path (overrides index.db_path)")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	defer s.Close()

	groups, err := s.collect(cmd.Context())
	if err != nil {
		return err
	}

	dbPath := indexPath(cmd, s.root, s.cfg)

	var runID string
	err = filelock.WithLock(cmd.Context(), dbPath, func() error {
		store, err := index.NewStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err = store.SaveRun(cmd.Context(), groups, s.dirs)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to index requirements: %w", err)
	}

	s.log.Debugf("saved run %s to %s", runID, dbPath)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Indexed %d requirements in %d groups (run %s)\n", groups.Count(), groups.Len(), runID)
	return nil
}

// indexPath resolves the database path from --db or the configuration.
func indexPath(cmd *cobra.Command, root string, cfg *config.Config) string {
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		return db
	}
	return config.ResolvePath(root, cfg.Index.DBPath)
}

// openIndex opens an existing index; the caller closes it.
func openIndex(dbPath string) (*index.Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no index at %s: run 'reqtrace index' first", dbPath)
	}
	store, err := index.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", dbPath, err)
	}
	return store, nil
}
