package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/analytics"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/pricing"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Compute trends, forecast, patterns, and anomalies",
	Long: `Run the full analytics pipeline over the current session snapshot:
daily trends, a 30-day usage forecast, behavioral patterns with cost
attribution, statistical anomalies, and generated insights.`,
	RunE: runAnalytics,
}

func init() {
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	s, cfg, cleanup, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	snapshot := s.Snapshot()
	if len(snapshot) == 0 {
		fmt.Println("No sessions to analyze.")
		return nil
	}

	trends := analytics.ComputeTrends(snapshot, time.Local)
	forecast := analytics.ForecastUsage(trends)
	patterns := analytics.DetectPatterns(snapshot, pricing.Default(), time.Local)
	anomalies := analytics.DetectAnomalies(snapshot)
	insights := analytics.GenerateInsights(cfg.InsightTemplate, trends, patterns, forecast)

	fmt.Printf("Analyzed %s sessions over %d active days\n",
		humanize.Comma(int64(len(snapshot))), len(trends.Daily))
	if trends.SkippedNoTimestamp > 0 {
		fmt.Printf("  (%d sessions without timestamps skipped)\n", trends.SkippedNoTimestamp)
	}
	fmt.Println()

	fmt.Println("Forecast")
	fmt.Println("--------")
	if !forecast.Available {
		fmt.Printf("  unavailable: %s\n", forecast.Reason)
	} else {
		fmt.Printf("  direction:  %s (%.2f%%/day)\n", forecast.Direction, forecast.ChangePct)
		fmt.Printf("  confidence: %.2f (R² %.3f)\n", forecast.Confidence, forecast.R2)
		fmt.Printf("  in 30 days: %s tokens/day\n",
			humanize.Comma(int64(forecast.Projected[len(forecast.Projected)-1])))
	}
	fmt.Println()

	fmt.Println("Patterns")
	fmt.Println("--------")
	if patterns.MostUsedModel != "" {
		fmt.Printf("  top model:  %s (%.0f%% of tokens)\n",
			patterns.MostUsedModel, patterns.ModelTokenShare[patterns.MostUsedModel]*100)
	}
	if len(patterns.PeakHours) > 0 {
		fmt.Printf("  peak hours: %v\n", patterns.PeakHours)
	}
	if len(patterns.LongestChain) > 1 {
		fmt.Printf("  longest agent chain: %d sessions, %s\n",
			len(patterns.LongestChain),
			time.Duration(patterns.LongestChainSeconds*float64(time.Second)).Round(time.Minute))
	}
	fmt.Printf("  estimated cost: $%.2f across %d billing blocks\n",
		patterns.TotalCost, len(patterns.BillingBlocks))
	fmt.Println()

	if len(anomalies) > 0 {
		fmt.Println("Anomalies")
		fmt.Println("---------")
		for _, a := range anomalies {
			fmt.Printf("  [%s] %s: %s tokens (z=%.1f)\n",
				a.Severity, a.SessionID, humanize.Comma(a.Tokens), a.ZScore)
		}
		fmt.Println()
	}

	if len(insights) > 0 {
		fmt.Println("Insights")
		fmt.Println("--------")
		for _, in := range insights {
			fmt.Printf("  - %s\n", in.Message)
		}
	}
	return nil
}
