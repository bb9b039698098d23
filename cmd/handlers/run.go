package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"pricewatch/internal/logger"
	"pricewatch/internal/pipeline"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the command that performs one monitoring pass
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one monitoring pass",
		Long: `Scrape the current prices, update the daily history and the last snapshot,
then send every configured user an alert or a digest. On the weekly day the
7-day summaries for electricity and gas are sent as well.

The command is meant to be started by an external scheduler (cron, CI).
Delivery and scraping failures are logged and do not change the exit code.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			monitor, err := pipeline.NewBuilder(appConfig).Build()
			if err != nil {
				logger.Error("Failed to build monitor", err)
				os.Exit(1)
			}

			report := monitor.Run(context.Background())
			fmt.Println(renderReport(report))
		},
	}
}

func renderReport(report pipeline.Report) string {
	lines := []string{field("Run", report.RunID)}

	if report.FetchErr != nil {
		lines = append(lines, field("Prices", errorStyle.Render(report.FetchErr.Error())))
	} else if report.Prices != nil {
		lines = append(lines,
			field("Luce", fmt.Sprintf("%.4f €/kWh", report.Prices.Luce)),
			field("Gas", fmt.Sprintf("%.4f €/Smc", report.Prices.Gas)),
		)
	}
	if report.HistoryErr != nil {
		lines = append(lines, field("History", errorStyle.Render(report.HistoryErr.Error())))
	}

	lines = append(lines,
		field("Recipients", report.Recipients),
		field("Alerts", report.Alerts),
		field("Digests", report.Digests),
		field("Weekly", report.Weekly),
		field("Sent", okStyle.Render(fmt.Sprint(report.Sent))),
	)
	if report.Failed > 0 {
		lines = append(lines, field("Failed", errorStyle.Render(fmt.Sprint(report.Failed))))
	}
	lines = append(lines, field("Duration", report.EndTime.Sub(report.StartTime).Round(time.Millisecond)))

	return title("📊 Monitoring pass") + "\n" + box(lines...)
}
