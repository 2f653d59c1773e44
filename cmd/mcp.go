package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/docnav/internal/mcp"
	"github.com/ziadkadry99/docnav/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing doc set search and navigation tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		// Stdout carries the protocol; logs go to stderr.
		opts, err := sessionOptions(cfg, commandLogger(true))
		if err != nil {
			return err
		}
		sess, err := session.New(context.Background(), store, opts)
		if err != nil {
			return err
		}
		defer sess.Close()

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "docnav MCP server started on stdio (docs=%s, source=%s)\n", cfg.DocsDir, cfg.Source)

		return mcpserver.NewServer(sess).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
