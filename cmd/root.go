package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docnav",
	Short: "Search and navigation for Doxygen HTML doc sets",
	Long: `docnav serves a Doxygen HTML doc set with an incremental search index
and a navigation tree that stays in sync with the page being read. Search
shards are loaded on demand and late arrivals refine results already shown.
The same engine is available on the command line and to AI agents via MCP.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".docnav.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
