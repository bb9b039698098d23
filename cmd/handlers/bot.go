package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pricewatch/internal/interactive"
	"pricewatch/internal/logger"
	"pricewatch/internal/pipeline"

	"github.com/spf13/cobra"
)

// NewBotCmd creates the command that serves the interactive Telegram bot
func NewBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Serve the interactive Telegram bot",
		Long: `Long-poll the Telegram Bot API and let users manage their thresholds with
/start, /miesoglie, /configura, /luce and /gas.

Stops cleanly on Ctrl+C or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
}

func runBot(parent context.Context) error {
	if err := appConfig.RequireBotToken(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot := interactive.NewBot(
		pipeline.Telegram(appConfig),
		pipeline.ThresholdStore(appConfig),
		interactive.Options{PollTimeout: appConfig.Telegram.PollTimeout},
	)

	logger.Info("Bot started", "thresholds_file", appConfig.Storage.ThresholdsFile)
	fmt.Println(okStyle.Render("🤖 Bot in ascolto. Premi Ctrl+C per fermarlo."))

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}

	logger.Info("Bot stopped")
	return nil
}
