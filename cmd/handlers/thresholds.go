package handlers

import (
	"fmt"
	"os"
	"sort"

	"pricewatch/internal/core"
	"pricewatch/internal/logger"
	"pricewatch/internal/pipeline"
	"pricewatch/internal/render"

	"github.com/spf13/cobra"
)

// NewThresholdsCmd creates the thresholds command group
func NewThresholdsCmd() *cobra.Command {
	thresholdsCmd := &cobra.Command{
		Use:     "thresholds",
		Aliases: []string{"soglie"},
		Short:   "Inspect and edit per-user thresholds",
		Long:    `Read or update the JSON thresholds file shared by "run" and "bot".`,
	}

	thresholdsCmd.AddCommand(newThresholdsShowCmd())
	thresholdsCmd.AddCommand(newThresholdsSetCmd())

	return thresholdsCmd
}

func newThresholdsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [chat-id]",
		Short: "Show configured thresholds",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := pipeline.ThresholdStore(appConfig)

			if len(args) == 1 {
				chatID := core.NormalizeChatID(args[0])
				fmt.Println(title("🎯 Soglie per " + chatID))
				fmt.Println(box(render.Thresholds(store.Get(chatID))))
				return
			}

			snap := store.Load()
			fmt.Println(title("🎯 Soglie"))
			fmt.Println(field("File", store.Path()))
			fmt.Println(field("Format", snap.Shape))

			t := newTable("Chat", "Luce (€/kWh)", "Gas (€/Smc)")
			ids := make([]string, 0, len(snap.Users))
			for id := range snap.Users {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				t.Row(thresholdRow(id, snap.Users[id])...)
			}
			t.Row(thresholdRow("default", snap.Default)...)
			fmt.Println(t.String())

			if len(snap.Users) == 0 {
				fmt.Println(labelStyle.Render("No users configured; runs notify the legacy chat with the defaults."))
			}
		},
	}
}

func newThresholdsSetCmd() *cobra.Command {
	var luce, gas float64

	cmd := &cobra.Command{
		Use:   "set <chat-id>",
		Short: "Set thresholds for a chat",
		Long: `Update one or both thresholds of a chat. A value that is not given keeps
the stored one (or the default when the chat is new).

Example:
  pricewatch thresholds set 123456789 --luce 0.21 --gas 0.85`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var lucePtr, gasPtr *float64
			if cmd.Flags().Changed("luce") {
				lucePtr = &luce
			}
			if cmd.Flags().Changed("gas") {
				gasPtr = &gas
			}
			if lucePtr == nil && gasPtr == nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("❌ nothing to set: pass --luce and/or --gas"))
				os.Exit(1)
			}

			store := pipeline.ThresholdStore(appConfig)
			saved, err := store.Save(args[0], lucePtr, gasPtr)
			if err != nil {
				logger.Error("Failed to save thresholds", err, "chat_id", args[0])
				fmt.Fprintln(os.Stderr, errorStyle.Render("❌ "+err.Error()))
				os.Exit(1)
			}

			fmt.Println(okStyle.Render("✅ Soglie salvate per " + core.NormalizeChatID(args[0])))
			fmt.Println(box(render.Thresholds(saved)))
		},
	}

	cmd.Flags().Float64Var(&luce, "luce", 0, "electricity threshold in €/kWh")
	cmd.Flags().Float64Var(&gas, "gas", 0, "gas threshold in €/Smc")

	return cmd
}

func thresholdRow(chatID string, cfg core.ThresholdConfig) []string {
	return []string{
		chatID,
		fmt.Sprintf("%.4f", cfg.Luce.Price),
		fmt.Sprintf("%.4f", cfg.Gas.Price),
	}
}
