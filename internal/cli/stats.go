package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"oshiquiz/internal/app"
	"oshiquiz/internal/config"
)

// NewStatsCmd groups maintenance commands for quiz counters.
func NewStatsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Quiz statistics maintenance",
	}
	cmd.AddCommand(newReconcileCmd(configPath))
	return cmd
}

func newReconcileCmd(configPath *string) *cobra.Command {
	var quizID int64
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild play_count and average_score from recorded attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := requirePostgres(cfg); err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			agg := app.NewStatsAggregator(store, config.TTLDuration(cfg.Stats.RetryMaxElapsed, 2*time.Second))
			stats, err := agg.Reconcile(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(stats))
			for id := range stats {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "quiz %d: play_count=%d average_score=%.1f\n",
					id, stats[id].PlayCount, stats[id].AverageScore)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&quizID, "quiz", 0, "quiz id to reconcile (all quizzes when 0)")
	return cmd
}
