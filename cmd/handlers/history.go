package handlers

import (
	"fmt"
	"os"

	"pricewatch/internal/core"
	"pricewatch/internal/history"
	"pricewatch/internal/logger"
	"pricewatch/internal/pipeline"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the command that prints recorded prices
func NewHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the last 7 recorded days and the last snapshot",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			store := pipeline.History(appConfig)
			daily := store.ReadDaily()

			fmt.Println(title("📈 Storico prezzi"))
			for _, r := range core.Resources {
				fmt.Println(weeklyTable(history.Weekly(daily, r)))
			}

			last, err := store.ReadLast()
			if err != nil {
				logger.Error("Failed to read last snapshot", err)
				os.Exit(1)
			}
			if last == nil {
				fmt.Println(labelStyle.Render("No snapshot recorded yet."))
				return
			}
			fmt.Println(box(
				field("Last check", last.Timestamp.In(appConfig.Location()).Format("2006-01-02 15:04:05")),
				field("Luce", fmt.Sprintf("%.4f %s", last.Luce, core.UnitElectricity)),
				field("Gas", fmt.Sprintf("%.4f %s", last.Gas, core.UnitGas)),
			))
		},
	}
}

func weeklyTable(summary history.WeeklySummary) string {
	r := summary.Resource
	heading := fmt.Sprintf("%s %s (%s)", r.Emoji(), r.Label(), r.Unit())
	if len(summary.Points) == 0 {
		return heading + "\n" + labelStyle.Render("nessun dato")
	}

	t := newTable("Data", "Prezzo")
	for _, p := range summary.Points {
		t.Row(p.Date, fmt.Sprintf("%.4f", p.Price))
	}

	out := heading + "\n" + t.String()
	if summary.Variation != nil {
		out += "\n" + field("Variazione", fmt.Sprintf("%+.2f%%", *summary.Variation))
	}
	return out
}
