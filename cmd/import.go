package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docnav/internal/db"
	"github.com/ziadkadry99/docnav/internal/docset"
	"github.com/ziadkadry99/docnav/internal/progress"
)

var importDB string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the doc set's navigation and search scripts into SQLite",
	Long: `Reads the navigation tree, its lazy branches, the NAVTREEINDEX pages and every
search shard from docs_dir and stores them in a single SQLite file. Set
source: sqlite to serve from it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dbPath := cfg.Database
		if importDB != "" {
			dbPath = importDB
		}
		if _, err := os.Stat(cfg.DocsDir); err != nil {
			return fmt.Errorf("docs directory: %w", err)
		}

		database, err := db.Open(dbPath)
		if err != nil {
			return err
		}
		defer database.Close()

		store := docset.NewStore(docset.DirSource(cfg.DocsDir), docset.Options{
			Shards:  cfg.Search.Shards,
			Exclude: cfg.Search.Exclude,
		})
		n, err := docset.Import(cmd.Context(), store, cfg.DocsDir, database, progress.NewReporter("Importing doc set"))
		if err != nil {
			return fmt.Errorf("importing %s: %w", cfg.DocsDir, err)
		}

		fmt.Fprintf(os.Stderr, "Imported %d scripts from %s into %s\n", n, cfg.DocsDir, dbPath)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDB, "db", "", "database path (overrides database)")
	rootCmd.AddCommand(importCmd)
}
