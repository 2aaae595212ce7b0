package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/ecoloop/internal/events"
	"github.com/abhisek/ecoloop/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List logged progression events",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		typ, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		after, _ := cmd.Flags().GetInt64("after")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.Events.Query(cmd.Context(), store.QueryOpts{
			UserID: userID,
			Type:   events.Type(typ),
			Limit:  limit,
			After:  after,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}

		fmt.Fprintf(out, "%-6s  %-19s  %-22s  %-12s  %-5s  %s\n",
			"Seq", "Timestamp", "Type", "User", "Level", "Payload")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, r := range recs {
			payload, _ := json.Marshal(r.Event)
			fmt.Fprintf(out, "%-6d  %-19s  %-22s  %-12s  %-5d  %s\n",
				r.Sequence,
				r.OccurredAt.Local().Format("2006-01-02 15:04:05"),
				r.Event.Type(),
				r.Event.User(),
				r.Event.Level(),
				payload,
			)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("user", "", "Only events for this learner")
	eventsCmd.Flags().String("type", "", "Only events of this type (lesson_reward_granted, level_completed, quiz_failed)")
	eventsCmd.Flags().Int("limit", 50, "Maximum number of events")
	eventsCmd.Flags().Int64("after", 0, "Only events with a sequence greater than this")
}
