package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guidectl/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(serveMCPCmd)
}

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the gate and retrieval checks as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		return mcpserver.New(o).Run(cmd.Context())
	},
}
