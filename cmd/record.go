package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/cli"
	"github.com/theirongolddev/clawmon/internal/cost"
)

var (
	flagRecordModel      string
	flagRecordInput      int64
	flagRecordOutput     int64
	flagRecordCacheRead  int64
	flagRecordCacheWrite int64
	flagRecordSession    string
	flagRecordDryRun     bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Price one API request and append it to today's cost log",
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&flagRecordModel, "model", "m", "", "Model id or tier alias (haiku, sonnet, opus)")
	recordCmd.Flags().Int64Var(&flagRecordInput, "input", 0, "Input tokens")
	recordCmd.Flags().Int64Var(&flagRecordOutput, "output", 0, "Output tokens")
	recordCmd.Flags().Int64Var(&flagRecordCacheRead, "cache-read", 0, "Cache read tokens")
	recordCmd.Flags().Int64Var(&flagRecordCacheWrite, "cache-write", 0, "Cache write tokens")
	recordCmd.Flags().StringVar(&flagRecordSession, "session", "", "Session id to tag the record with")
	recordCmd.Flags().BoolVar(&flagRecordDryRun, "dry-run", false, "Price the request without logging it")
	_ = recordCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(_ *cobra.Command, _ []string) error {
	usage := cost.Usage{
		InputTokens:      flagRecordInput,
		OutputTokens:     flagRecordOutput,
		CacheReadTokens:  flagRecordCacheRead,
		CacheWriteTokens: flagRecordCacheWrite,
	}

	est := newEstimator()
	breakdown := est.Calculate(flagRecordModel, usage)

	if !flagRecordDryRun {
		if err := est.Record(flagRecordModel, usage, flagRecordSession); err != nil {
			return fmt.Errorf("logging cost record: %w", err)
		}
	}

	if flagJSON {
		return printJSON(breakdown)
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   flagRecordModel,
		Headers: []string{"Component", "Cost"},
		Rows: [][]string{
			{"Input", cli.FormatCost(breakdown.InputCost)},
			{"Output", cli.FormatCost(breakdown.OutputCost)},
			{"Cache read", cli.FormatCost(breakdown.CacheReadCost)},
			{"Cache write", cli.FormatCost(breakdown.CacheWriteCost)},
			{"Total", cli.FormatCost(breakdown.Total)},
		},
	}))
	if flagRecordDryRun {
		fmt.Println("  Dry run: nothing logged.")
	}
	fmt.Println()

	return nil
}
