package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"prmirror/internal/bootstrap"
	"prmirror/internal/errs"
	"prmirror/internal/usecase/eventsconsole"
	"prmirror/internal/usecase/ingest"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive delivery ledger console",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *ingest.Service) error {
		status, _ := cmd.Flags().GetString("status")
		kind, _ := cmd.Flags().GetString("event")
		limit, _ := cmd.Flags().GetInt("limit")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := eventsconsole.NewEventsModel(cmd.Context(), svc, eventsconsole.Options{
			StatusFilter:    status,
			Kind:            kind,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run events console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("status", "", "Initial status filter (pending|processed|failed|ignored)")
	consoleCmd.Flags().String("event", "", "Only show this GitHub event name")
	consoleCmd.Flags().Int("limit", 20, "Rows to load per refresh")
	consoleCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}
