package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docnav/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize docnav configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to point docnav at your Doxygen output and generates a .docnav.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
