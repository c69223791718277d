package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/cli"
	"github.com/theirongolddev/clawmon/internal/cost"
)

var (
	flagSavingsDate    string
	flagSavingsCaching bool
	flagSavingsTiering bool
)

var savingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "Project what a day would have cost without the active optimizations",
	RunE:  runSavings,
}

func init() {
	savingsCmd.Flags().StringVar(&flagSavingsDate, "date", "", "Day to project (YYYY-MM-DD, default today)")
	savingsCmd.Flags().BoolVar(&flagSavingsCaching, "caching", true, "Assume prompt caching was active")
	savingsCmd.Flags().BoolVar(&flagSavingsTiering, "tiering", true, "Assume model tiering was active")
	rootCmd.AddCommand(savingsCmd)
}

func runSavings(cmd *cobra.Command, _ []string) error {
	day, err := resolveDay(flagSavingsDate)
	if err != nil {
		return err
	}

	// Config toggles apply unless overridden on the command line.
	caching := cfg.Tiering.CachingOn
	tiering := cfg.Tiering.TieringOn
	if cmd.Flags().Changed("caching") {
		caching = flagSavingsCaching
	}
	if cmd.Flags().Changed("tiering") {
		tiering = flagSavingsTiering
	}

	summary := newEstimator().Summary(day)
	savings := cost.EstimateSavings(summary.TotalCost, caching, tiering)

	if flagJSON {
		return printJSON(savings)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SAVINGS  " + summary.Date))
	fmt.Println()

	if summary.TotalCost == 0 {
		fmt.Println("  No recorded spend for this day.")
		fmt.Println()
		return nil
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Actual spend", cli.FormatCost(savings.BaseCost)},
			{"Without optimizations", cli.FormatCost(savings.EstimatedWithout)},
			{"Saved", cli.FormatCost(savings.SavingsAmount)},
			{"Saved %", fmt.Sprintf("%.1f%%", savings.SavingsPercent)},
		},
	}))

	return nil
}
