package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run a full load and report its outcome",
	Long: `Scan every session file, the stats cache, and the settings tiers,
then print the load report: what loaded, what failed, and the resulting
store health.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	s, _, cleanup, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	report := s.Report()
	if report == nil {
		return fmt.Errorf("no load report produced")
	}

	fmt.Println("Load Report")
	fmt.Println("===========")
	fmt.Println()
	fmt.Printf("Sessions scanned:  %s\n", humanize.Comma(int64(report.SessionsScanned)))
	fmt.Printf("Sessions failed:   %s\n", humanize.Comma(int64(report.SessionsFailed)))
	fmt.Printf("Stats loaded:      %v\n", report.StatsLoaded)
	fmt.Printf("Settings loaded:   %v\n", report.SettingsLoaded)
	fmt.Println()

	if len(report.Entries) > 0 {
		fmt.Println("Entries:")
		for _, e := range report.Entries {
			fmt.Printf("  [%s] %s: %s\n", e.Severity, e.Source, e.Message)
			if e.Suggestion != "" {
				fmt.Printf("          hint: %s\n", e.Suggestion)
			}
		}
		fmt.Println()
	}

	degraded := s.Degraded()
	fmt.Printf("Health: %s\n", degraded.Mode)
	if degraded.Mode == models.PartialData {
		fmt.Printf("  missing: %v\n", degraded.Missing)
	}
	if degraded.Reason != "" {
		fmt.Printf("  reason: %s\n", degraded.Reason)
	}
	return nil
}
