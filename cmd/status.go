package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/cli"
	"github.com/theirongolddev/clawmon/internal/cost"
	"github.com/theirongolddev/clawmon/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Session health overview and today's spend",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the JSON shape for `clawmon status --json`.
type statusReport struct {
	Sessions int               `json:"sessions"`
	Healthy  int               `json:"healthy"`
	Warning  int               `json:"warning"`
	Critical int               `json:"critical"`
	Today    cost.DailySummary `json:"today"`
	Alerts   []health.Health   `json:"alerts"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	sessions := newMonitor().Sessions()
	today := newEstimator().TodaySummary()

	var healthy, warning, critical int
	var alerts []health.Health
	for _, h := range sessions {
		switch h.Status {
		case health.StatusCritical:
			critical++
		case health.StatusWarning:
			warning++
		default:
			healthy++
		}
		if h.Status != health.StatusHealthy {
			alerts = append(alerts, h)
		}
	}

	if flagJSON {
		return printJSON(statusReport{
			Sessions: len(sessions),
			Healthy:  healthy,
			Warning:  warning,
			Critical: critical,
			Today:    today,
			Alerts:   alerts,
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CLAWMON STATUS"))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Sessions",
		Headers: []string{"Total", "Healthy", "Warning", "Critical"},
		Rows: [][]string{{
			fmt.Sprintf("%d", len(sessions)),
			fmt.Sprintf("%d", healthy),
			fmt.Sprintf("%d", warning),
			fmt.Sprintf("%d", critical),
		}},
	}))

	fmt.Printf("  Today: %s across %s requests\n\n",
		cli.FormatCost(today.TotalCost), cli.FormatNumber(int64(today.Requests)))

	for _, h := range alerts {
		fmt.Printf("  %s  %s: %s\n", cli.RenderStatus(h.Status), h.SessionID, h.Recommendation)
	}
	if len(alerts) > 0 {
		fmt.Println()
	}

	return nil
}
