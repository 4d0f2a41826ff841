package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

func init() {
	ledgerCmd.AddCommand(ledgerStartCmd)
	ledgerCmd.AddCommand(ledgerViolationCmd)
	ledgerCmd.AddCommand(ledgerAccumulateCmd)
	ledgerCmd.AddCommand(ledgerFinalizeCmd)
	ledgerCmd.AddCommand(ledgerRankCmd)
	ledgerCmd.AddCommand(ledgerMetricsCmd)
	rootCmd.AddCommand(ledgerCmd)
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Record and query RunEvents",
}

var ledgerStartCmd = &cobra.Command{
	Use:   "start <intent> <prompt-digest> <guidance-hash> [rule-ids...]",
	Short: "Open a new in-progress RunEvent",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		event := o.Ledger().CreateEvent(model.TaskIntent(args[0]), args[1], args[2], args[3:])
		return json.NewEncoder(cmd.OutOrStdout()).Encode(event)
	},
}

var ledgerViolationCmd = &cobra.Command{
	Use:   "violation <event-id> <rule-id> <gate-name> <detail> <cost>",
	Short: "Record a violation against an in-progress RunEvent",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		cost, err := strconv.Atoi(args[4])
		if err != nil {
			return fmt.Errorf("parsing cost %q: %w", args[4], err)
		}
		v := model.Violation{
			RuleID:     args[1],
			GateName:   args[2],
			Detail:     args[3],
			Severity:   model.DecisionWarn,
			OccurredAt: time.Now().UTC(),
			Cost:       cost,
		}
		return o.Ledger().RecordViolation(args[0], v)
	},
}

var ledgerAccumulateCmd = &cobra.Command{
	Use:   "accumulate <event-id> <added> <removed> <files> <rework-lines>",
	Short: "Accumulate diff statistics onto an in-progress RunEvent",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		nums := make([]int, 4)
		for i, a := range args[1:] {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("parsing %q: %w", a, err)
			}
			nums[i] = n
		}
		return o.Ledger().AccumulateDiff(args[0], nums[0], nums[1], nums[2], nums[3])
	},
}

var ledgerFinalizeCmd = &cobra.Command{
	Use:   "finalize <event-id> <outcome>",
	Short: "Freeze a RunEvent and run the configured evaluators against it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		results, err := o.Ledger().FinalizeEvent(args[0], model.RunOutcome(args[1]))
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
	},
}

var ledgerRankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank violations by frequency*cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(o.Ledger().RankViolations())
	},
}

var ledgerMetricsWindow int

var ledgerMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute aggregate ledger metrics over a window of recent events",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(o.Ledger().ComputeMetrics(ledgerMetricsWindow))
	},
}

func init() {
	ledgerMetricsCmd.Flags().IntVar(&ledgerMetricsWindow, "window", 0, "number of most recent events to include (0 means all)")
}
