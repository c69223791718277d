package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/config"
	"github.com/theirongolddev/clawmon/internal/cost"
	"github.com/theirongolddev/clawmon/internal/health"
	"github.com/theirongolddev/clawmon/internal/pricing"
	"github.com/theirongolddev/clawmon/internal/tier"
)

var (
	flagSessionsDir string
	flagCostsDir    string
	flagJSON        bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "clawmon",
	Short: "Cost and session health monitor for OpenClaw agents",
	Long:  "Track per-request API costs, classify prompts into model tiers, and watch agent session logs for runaway growth.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		cfg, _ = config.Load()
		if flagSessionsDir != "" {
			cfg.General.SessionsDir = flagSessionsDir
		}
		if flagCostsDir != "" {
			cfg.General.CostsDir = flagCostsDir
		}
	},
	RunE: runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagSessionsDir, "sessions-dir", "s", "", "Agent sessions directory (default from config)")
	rootCmd.PersistentFlags().StringVarP(&flagCostsDir, "costs-dir", "c", "", "Cost log directory (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit machine-readable JSON")
}

// newEstimator is the shared estimator construction path used by all
// cost commands.
func newEstimator() *cost.Estimator {
	return cost.NewEstimator(pricing.NewTable(cfg.General.PricingFile), cfg.General.CostsDir)
}

func newMonitor() *health.Monitor {
	return health.NewMonitor(cfg.General.SessionsDir)
}

func newClassifier() *tier.Classifier {
	return tier.NewClassifier(tier.LoadConfig(cfg.General.TierFile))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
