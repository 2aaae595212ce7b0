package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/ecoloop/internal/app"
	"github.com/abhisek/ecoloop/internal/progress"
	"github.com/abhisek/ecoloop/internal/status"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt",
	Short: "Drive a level attempt from the command line",
}

// attemptRun opens the app and hands the --user/--level pair to fn.
func attemptRun(fn func(cmd *cobra.Command, a *app.App, userID string, levelID int, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		levelID, _ := cmd.Flags().GetInt("level")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, userID, levelID, args)
	}
}

func printProgress(cmd *cobra.Command, p progress.LevelProgress) {
	fmt.Fprintf(cmd.OutOrStdout(), "level %d: %s (%s), watched %d%%, best %d\n",
		p.LevelID, p.State, status.FromState(p.State), p.WatchPercent, p.BestScore)
}

var attemptStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start or resume an attempt",
	RunE: attemptRun(func(cmd *cobra.Command, a *app.App, userID string, levelID int, _ []string) error {
		p, err := a.Engine.StartLesson(cmd.Context(), userID, levelID)
		if err != nil {
			return err
		}
		printProgress(cmd, p)
		return nil
	}),
}

var attemptWatchCmd = &cobra.Command{
	Use:   "watch <percent>",
	Short: "Report lesson video progress",
	Args:  cobra.ExactArgs(1),
	RunE: attemptRun(func(cmd *cobra.Command, a *app.App, userID string, levelID int, args []string) error {
		pct, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid percent %q: %w", args[0], err)
		}
		res, err := a.Engine.ReportWatchProgress(cmd.Context(), userID, levelID, pct)
		if err != nil {
			return err
		}
		printProgress(cmd, res.Progress)
		if !res.Reward.IsZero() {
			fmt.Fprintf(cmd.OutOrStdout(), "+%d XP for watching\n", res.Reward.XP)
		}
		return nil
	}),
}

var attemptQuizCmd = &cobra.Command{
	Use:   "quiz <score>",
	Short: "Submit a quiz score (0-100)",
	Args:  cobra.ExactArgs(1),
	RunE: attemptRun(func(cmd *cobra.Command, a *app.App, userID string, levelID int, args []string) error {
		score, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[0], err)
		}
		res, err := a.Engine.SubmitQuiz(cmd.Context(), userID, levelID, score)
		if err != nil {
			return err
		}
		printProgress(cmd, res.Progress)

		out := cmd.OutOrStdout()
		if !res.Passed {
			fmt.Fprintf(out, "quiz failed: %d < %d, try again\n", res.Score, res.Required)
			return nil
		}
		fmt.Fprintf(out, "passed! +%d coins +%d XP (wallet: %d coins, %d XP)\n",
			res.Reward.Coins, res.Reward.XP, res.Wallet.Coins, res.Wallet.XP)
		return nil
	}),
}

var attemptAbandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Abandon the current attempt",
	RunE: attemptRun(func(cmd *cobra.Command, a *app.App, userID string, levelID int, _ []string) error {
		p, err := a.Engine.Abandon(cmd.Context(), userID, levelID)
		if err != nil {
			return err
		}
		printProgress(cmd, p)
		return nil
	}),
}

func init() {
	attemptCmd.PersistentFlags().String("user", "", "Learner ID")
	attemptCmd.PersistentFlags().Int("level", 0, "Level ID")
	_ = attemptCmd.MarkPersistentFlagRequired("user")
	_ = attemptCmd.MarkPersistentFlagRequired("level")

	attemptCmd.AddCommand(attemptStartCmd)
	attemptCmd.AddCommand(attemptWatchCmd)
	attemptCmd.AddCommand(attemptQuizCmd)
	attemptCmd.AddCommand(attemptAbandonCmd)
}
