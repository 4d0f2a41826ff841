package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

func init() {
	gateCmd.AddCommand(gateCommandCmd)
	gateCmd.AddCommand(gateToolUseCmd)
	gateCmd.AddCommand(gateEditCmd)
	rootCmd.AddCommand(gateCmd)
}

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run the four synchronous, deterministic pattern gates",
}

var gateCommandCmd = &cobra.Command{
	Use:   "command <shell-command>",
	Short: "Evaluate a shell command against the destructive-operation and diff-size gates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		result := o.EvaluateCommand(args[0])
		return encodeGateResult(cmd, result)
	},
}

var gateToolUseCmd = &cobra.Command{
	Use:   "tool-use <tool-name> <params-json>",
	Short: "Evaluate a tool invocation against the allowlist and secret gates",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		result := o.EvaluateToolUse(args[0], args[1])
		return encodeGateResult(cmd, result)
	},
}

var gateEditCmd = &cobra.Command{
	Use:   "edit <path> <content-file> <diff-lines>",
	Short: "Evaluate a file edit against the secret and diff-size gates",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		diffLines, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("parsing diff-lines %q: %w", args[2], err)
		}
		content, err := readFileOrStdin(args[1])
		if err != nil {
			return err
		}
		result := o.EvaluateEdit(args[0], content, diffLines)
		return encodeGateResult(cmd, result)
	},
}

func encodeGateResult(cmd *cobra.Command, result model.GateResult) error {
	return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
}
