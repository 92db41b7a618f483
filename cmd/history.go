package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Debug("history called")
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := store.Open(cfg.State.Dir)
		if err != nil {
			return fmt.Errorf("failed to open state database: %w", err)
		}
		defer db.Close()

		runs, err := db.List(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			logger.Info("No runs recorded yet")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tSTATE\tFLAGGED\tFIXES\tDURATION\tDESCRIPTION\tRESULT")
		for _, r := range runs {
			result := r.ArtifactPath
			if r.Error != "" {
				result = r.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.State,
				r.Flagged,
				r.Corrections,
				r.Duration().Round(time.Millisecond),
				truncate(r.Description, 48),
				truncate(result, 60),
			)
		}
		return tw.Flush()
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", store.DefaultHistoryLimit, "Number of runs to show")
}
