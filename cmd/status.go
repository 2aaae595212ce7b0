package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/ecoloop/internal/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a learner's map and wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		nodes, err := status.NewResolver(a.Tracker).ResolveMap(ctx, userID)
		if err != nil {
			return fmt.Errorf("resolve map: %w", err)
		}
		wallet, err := a.Tracker.Wallet(ctx, userID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-4s  %-20s  %-12s  %s\n", "ID", "Level", "Status", "Best")
		fmt.Fprintln(out, strings.Repeat("─", 48))
		for _, n := range nodes {
			best := "-"
			if n.Completed {
				best = fmt.Sprint(n.BestScore)
			}
			fmt.Fprintf(out, "%-4d  %-20s  %-12s  %s\n", n.Level.ID, n.Level.Name, n.Status, best)
		}
		fmt.Fprintf(out, "\nCoins: %d  XP: %d\n", wallet.Coins, wallet.XP)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("user", "", "Learner ID")
	_ = statusCmd.MarkFlagRequired("user")
}
