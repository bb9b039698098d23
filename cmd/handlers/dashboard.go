package handlers

import (
	"pricewatch/internal/pipeline"
	"pricewatch/internal/tui"

	"github.com/spf13/cobra"
)

// NewDashboardCmd creates the command that launches the terminal dashboard
func NewDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"tui"},
		Short:   "Browse users, thresholds and recent prices in the terminal",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := pipeline.History(appConfig)
			last, err := store.ReadLast()
			if err != nil {
				return err
			}

			return tui.Start(tui.Data{
				Thresholds: pipeline.ThresholdStore(appConfig).Load(),
				Daily:      store.ReadDaily(),
				Last:       last,
			})
		},
	}
}
