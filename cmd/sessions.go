package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/cli"
	"github.com/theirongolddev/clawmon/internal/health"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Health details for every active session",
	RunE:  runSessions,
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Sessions that need attention",
	RunE:  runAlerts,
}

// jsonCmd is the machine-readable health dump other tooling scrapes.
var jsonCmd = &cobra.Command{
	Use:   "json",
	Short: "Dump all session health data as JSON",
	RunE: func(_ *cobra.Command, _ []string) error {
		sessions := newMonitor().Sessions()
		if sessions == nil {
			sessions = []health.Health{}
		}
		return printJSON(sessions)
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(jsonCmd)
}

func runSessions(_ *cobra.Command, _ []string) error {
	sessions := newMonitor().Sessions()

	if flagJSON {
		return printJSON(sessions)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  (%d)", len(sessions))))
	fmt.Println()

	if len(sessions) == 0 {
		fmt.Println("  No session files found.")
		fmt.Println()
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, h := range sessions {
		rows = append(rows, []string{
			truncate(h.SessionID, 20),
			cli.FormatSize(h.SizeBytes),
			cli.FormatNumber(int64(h.MessageCount)),
			cli.FormatNumber(int64(h.InjectionCount)),
			cli.FormatPercent(h.ContextUtilization),
			cli.FormatRate(h.GrowthKBPerMin),
			cli.RenderStatus(h.Status),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Session", "Size", "Msgs", "Inj", "Context", "Growth", "Status"},
		Rows:    rows,
	}))

	return nil
}

func runAlerts(_ *cobra.Command, _ []string) error {
	alerts := newMonitor().Alerts()

	if flagJSON {
		if alerts == nil {
			alerts = []health.Health{}
		}
		return printJSON(alerts)
	}

	fmt.Println()
	if len(alerts) == 0 {
		fmt.Println("  All sessions healthy.")
		fmt.Println()
		return nil
	}

	for _, h := range alerts {
		fmt.Printf("  %s  %s (%s, %d msgs)\n", cli.RenderStatus(h.Status), h.SessionID,
			cli.FormatSize(h.SizeBytes), h.MessageCount)
		fmt.Printf("      %s\n", h.Recommendation)
	}
	fmt.Println()

	return nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
