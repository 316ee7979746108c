package cli

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics",
	Long: `Display aggregate usage statistics: session and message totals,
per-model token usage, and recent daily activity.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	s, _, cleanup, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Usage Statistics")
	fmt.Println("================")
	fmt.Println()
	fmt.Printf("Known Sessions:    %s\n", humanize.Comma(int64(s.SessionCount())))

	sc := s.Stats()
	if sc == nil {
		fmt.Println()
		fmt.Println("No stats cache found yet.")
		return nil
	}

	fmt.Printf("Total Sessions:    %s\n", humanize.Comma(int64(sc.TotalSessions)))
	fmt.Printf("Total Messages:    %s\n", humanize.Comma(int64(sc.TotalMessages)))
	fmt.Println()

	if len(sc.ModelUsage) > 0 {
		fmt.Println("Token Usage by Model:")
		names := make([]string, 0, len(sc.ModelUsage))
		for name := range sc.ModelUsage {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return sc.ModelUsage[names[i]].Total() > sc.ModelUsage[names[j]].Total()
		})
		for _, name := range names {
			u := sc.ModelUsage[name]
			fmt.Printf("  %-32s %12s in  %12s out  %12s cached\n",
				name,
				humanize.Comma(u.Input),
				humanize.Comma(u.Output),
				humanize.Comma(u.CacheRead+u.CacheWrite))
		}
		fmt.Println()
	}

	if n := len(sc.DailyActivity); n > 0 {
		fmt.Println("Recent Activity:")
		start := n - 7
		if start < 0 {
			start = 0
		}
		for _, day := range sc.DailyActivity[start:] {
			fmt.Printf("  %s  %3d sessions  %5d messages  %12s tokens\n",
				day.Date, day.SessionCount, day.MessageCount,
				humanize.Comma(day.TotalTokens))
		}
	}
	return nil
}
