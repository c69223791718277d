package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/cli"
)

var (
	flagTierCurrentModel string
	flagTierMinConf      float64
)

var tierCmd = &cobra.Command{
	Use:   "tier [message...]",
	Short: "Classify a message into a model tier",
	Long:  "Classify a user message into haiku/sonnet/opus. Reads the message from arguments, or from stdin when none are given.",
	RunE:  runTier,
}

func init() {
	tierCmd.Flags().StringVar(&flagTierCurrentModel, "current-model", "", "Model currently in use, to check whether a switch would apply")
	tierCmd.Flags().Float64Var(&flagTierMinConf, "min-confidence", 0, "Confidence floor for applying a switch (default from config)")
	rootCmd.AddCommand(tierCmd)
}

func runTier(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	if message == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading message from stdin: %w", err)
		}
		message = strings.TrimSpace(string(data))
	}
	if message == "" {
		return fmt.Errorf("no message given")
	}

	minConf := cfg.Tiering.MinConfidence
	if cmd.Flags().Changed("min-confidence") {
		minConf = flagTierMinConf
	}

	classifier := newClassifier()
	decision := classifier.Classify(message)

	if flagJSON {
		return printJSON(decision)
	}

	fmt.Println()
	rows := [][]string{
		{"Tier", string(decision.Tier)},
		{"Model", decision.ModelID},
		{"Confidence", cli.FormatPercent(decision.Confidence)},
		{"Reason", decision.Reason},
	}
	for _, p := range decision.MatchedPatterns {
		rows = append(rows, []string{"Matched", p})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Field", "Value"},
		Rows:    rows,
	}))

	if flagTierCurrentModel != "" {
		if classifier.ShouldApply(flagTierCurrentModel, decision, minConf) {
			fmt.Printf("  Would switch %s -> %s\n", flagTierCurrentModel, decision.ModelID)
		} else {
			fmt.Printf("  Would keep %s\n", flagTierCurrentModel)
		}
	}
	fmt.Println()

	return nil
}
