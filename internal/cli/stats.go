package cli

import (
	"context"
	"fmt"
	"io"

	"anxiety-quiz-bot/internal/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewStatsCmd prints aggregate quiz statistics from the answer store.
func NewStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print attempt statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), *configPath, cmd.OutOrStdout())
		},
	}
}

func runStats(ctx context.Context, configPath string, out io.Writer) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.AggregateCounts(ctx)
	if err != nil {
		return err
	}
	if stats.Today, err = store.CountToday(ctx); err != nil {
		return err
	}
	printStats(out, stats)
	return nil
}

func printStats(out io.Writer, stats domain.Stats) {
	bold := color.New(color.Bold)
	bold.Fprintf(out, "Total attempts: %d\n", stats.Total)
	fmt.Fprintf(out, "Today:          %d\n", stats.Today)
	if stats.Total == 0 {
		return
	}
	fmt.Fprintln(out)
	for _, tc := range stats.Ranked() {
		fmt.Fprintf(out, "%-16s %5d  %6s%%\n", tc.Type, tc.Count, stats.Share(tc.Type).StringFixed(1))
	}
}
