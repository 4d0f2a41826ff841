package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/guidectl/internal/dashboard"
)

var dashboardInterval time.Duration

func init() {
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 2*time.Second, "refresh interval")
	rootCmd.AddCommand(dashboardCmd)
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Terminal UI over ledger violation rankings and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := loadOrchestrator(cmd)
		if err != nil {
			return err
		}
		p := tea.NewProgram(dashboard.New(o.Ledger(), dashboardInterval))
		_, err = p.Run()
		return err
	},
}
