// Package app provides the entry point for the hubgate command-line application.
package app

import (
	"github.com/spf13/cobra"

	"github.com/stacklok/hubgate/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "hubgate",
	DisableAutoGenTag: true,
	Short:             "hubgate is a multi-transport MCP gateway for the hub and hosted Spaces",
	Long: `hubgate is an MCP (Model Context Protocol) gateway that brokers calls between
MCP clients and the hub: built-in search, documentation and job tools, plus
tools proxied dynamically from hosted Spaces.

It serves the protocol over streamable HTTP/SSE, a stateless per-request
JSON transport, or stdio.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the hubgate CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
