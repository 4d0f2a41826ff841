package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func init() {
	optimizeCmd.AddCommand(optimizeRunCmd)
	rootCmd.AddCommand(optimizeCmd)
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run the weekly A/B promotion cycle over top violations",
}

var optimizeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one optimizer cycle against the current ledger and shard pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		adrs, err := o.Optimizer().RunCycle(cmd.Context())
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(adrs)
	},
}
