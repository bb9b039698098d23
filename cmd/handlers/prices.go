package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"pricewatch/internal/fetch"
	"pricewatch/internal/logger"
	"pricewatch/internal/pipeline"

	"github.com/spf13/cobra"
)

// NewPricesCmd creates the command that scrapes and prints the current prices
func NewPricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Scrape and print the current prices",
		Long: `Fetch the tariff page and print the electricity and gas raw material prices.
Nothing is recorded and no message is sent.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			extractor := pipeline.Extractor(appConfig)
			prices, err := extractor.FetchCurrentPrices(context.Background())
			if err != nil {
				var ee *fetch.ExtractionError
				if errors.As(err, &ee) && ee.Kind == fetch.KindParse {
					logger.Debug("Scoped text", "scope", ee.Scope)
				}
				logger.Error("Failed to read prices", err, "url", appConfig.Tariff.URL)
				fmt.Fprintln(os.Stderr, errorStyle.Render("❌ "+err.Error()))
				os.Exit(1)
			}

			fmt.Println(title("💶 " + appConfig.Tariff.SectionMarker))
			fmt.Println(box(
				field("Luce", fmt.Sprintf("%.4f €/kWh", prices.Luce)),
				field("Gas", fmt.Sprintf("%.4f €/Smc", prices.Gas)),
				field("Source", appConfig.Tariff.URL),
			))
		},
	}
}
