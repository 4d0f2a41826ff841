// Command guidectl is the operator CLI for the guidance control plane:
// it compiles rules documents, serves retrieval and gate checks, drives
// the ledger and optimizer, and exposes the same checks over MCP for an
// agent host to call directly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guidectl/internal/config"
	"github.com/fyrsmithlabs/guidectl/internal/logging"
	"github.com/fyrsmithlabs/guidectl/internal/orchestrator"
)

var (
	version   = "dev"
	gitCommit = "unknown"

	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "guidectl",
	Short:   "Deterministic guidance control plane for coding agents",
	Version: fmt.Sprintf("%s (%s)", version, gitCommit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to guidectl.yaml (defaults to ~/.config/guidectl/guidectl.yaml)")
}

// loadOrchestrator is the shared entry point every subcommand uses to
// load config, build a logger, and construct the wired Orchestrator.
func loadOrchestrator(cmd *cobra.Command) (*orchestrator.Orchestrator, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	return orchestrator.New(cmd.Context(), cfg, logger)
}
