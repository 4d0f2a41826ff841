package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

var (
	retrieveIntent  string
	retrieveRepo    string
	retrieveMinRisk string
	retrieveTopK    int
)

func init() {
	retrieveCmd.Flags().StringVar(&retrieveIntent, "intent", "", "override the classified task intent (e.g. bug-fix, security)")
	retrieveCmd.Flags().StringVar(&retrieveRepo, "repo-path", "", "repo path to scope-filter shards against")
	retrieveCmd.Flags().StringVar(&retrieveMinRisk, "min-risk", "", "minimum risk class to include (low, medium, high, critical)")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 0, "maximum shards to return (defaults to configured top-k)")
	rootCmd.AddCommand(retrieveCmd)
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <task-description>",
	Short: "Retrieve the assembled policy text for a task description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}

		req := model.RetrievalRequest{
			TaskDescription: args[0],
			RepoPath:        retrieveRepo,
			TopK:            retrieveTopK,
		}
		if retrieveIntent != "" {
			intent := model.TaskIntent(retrieveIntent)
			req.Intent = &intent
		}
		if retrieveMinRisk != "" {
			risk := model.RiskClass(retrieveMinRisk)
			req.MinRiskClass = &risk
		}

		result, err := o.Retrieve(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("retrieve: %w", err)
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	},
}
