package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions",
	Long:  `List sessions ordered by last activity, newest first.`,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Maximum sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	s, _, cleanup, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	recent := s.RecentSessions(sessionsLimit)
	if len(recent) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	for _, meta := range recent {
		when := "unknown time"
		if !meta.LastTimestamp.IsZero() {
			when = humanize.Time(meta.LastTimestamp)
		}
		prompt := meta.FirstPrompt
		if prompt == "" {
			prompt = "(no prompt)"
		}
		if len(prompt) > 60 {
			prompt = prompt[:57] + "..."
		}
		fmt.Printf("%-38s %-14s %4d msgs  %10s tokens  %s\n",
			meta.SessionID,
			when,
			meta.MessageCount,
			humanize.Comma(meta.Tokens.Total()),
			prompt)
		if meta.GitBranch != "" || meta.ProjectPath != "" {
			detail := meta.ProjectPath
			if meta.GitBranch != "" {
				detail += " @" + meta.GitBranch
			}
			fmt.Printf("  %s\n", strings.TrimSpace(detail))
		}
	}
	return nil
}
