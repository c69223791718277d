package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/cli"
)

var flagCostsDate string

var costsCmd = &cobra.Command{
	Use:     "costs",
	Aliases: []string{"today"},
	Short:   "Daily cost summary from the append-only log",
	RunE:    runCosts,
}

func init() {
	costsCmd.Flags().StringVar(&flagCostsDate, "date", "", "Day to summarize (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(costsCmd)
}

func resolveDay(flag string) (time.Time, error) {
	if flag == "" {
		return time.Now(), nil
	}
	day, err := time.Parse("2006-01-02", flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD)", flag)
	}
	return day, nil
}

func runCosts(_ *cobra.Command, _ []string) error {
	day, err := resolveDay(flagCostsDate)
	if err != nil {
		return err
	}

	summary := newEstimator().Summary(day)

	if flagJSON {
		return printJSON(summary)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("COSTS  " + summary.Date))
	fmt.Println()

	if summary.Requests == 0 {
		fmt.Println("  No recorded requests for this day.")
		fmt.Println()
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Requests", cli.FormatNumber(int64(summary.Requests))},
			{"Input tokens", cli.FormatTokens(summary.InputTokens)},
			{"Output tokens", cli.FormatTokens(summary.OutputTokens)},
			{"Cache read tokens", cli.FormatTokens(summary.CacheReadTokens)},
			{"Total cost", cli.FormatCost(summary.TotalCost)},
		},
	}))

	return nil
}
