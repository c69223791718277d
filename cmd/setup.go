package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Start from the existing config so re-running keeps prior answers.
	current, _ := config.Load()

	sessionsDir := current.General.SessionsDir
	costsDir := current.General.CostsDir
	minConfidence := current.Tiering.MinConfidence
	cachingOn := current.Tiering.CachingOn
	tieringOn := current.Tiering.TieringOn
	daemonAddr := current.Daemon.Addr

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sessions directory").
				Description("Where the agent writes its session logs.").
				Value(&sessionsDir),
			huh.NewInput().
				Title("Costs directory").
				Description("Where daily cost logs are appended.").
				Value(&costsDir),
		),
		huh.NewGroup(
			huh.NewSelect[float64]().
				Title("Minimum routing confidence").
				Description("Tier switches below this confidence are ignored.").
				Options(
					huh.NewOption("0.6 (eager)", 0.6),
					huh.NewOption("0.7 (default)", 0.7),
					huh.NewOption("0.8 (cautious)", 0.8),
					huh.NewOption("0.9 (strict)", 0.9),
				).
				Value(&minConfidence),
			huh.NewConfirm().
				Title("Prompt caching active?").
				Description("Counts toward the savings projection.").
				Value(&cachingOn),
			huh.NewConfirm().
				Title("Model tiering active?").
				Description("Counts toward the savings projection.").
				Value(&tieringOn),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Daemon listen address").
				Value(&daemonAddr),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup canceled, nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	current.General.SessionsDir = sessionsDir
	current.General.CostsDir = costsDir
	current.Tiering.MinConfidence = minConfidence
	current.Tiering.CachingOn = cachingOn
	current.Tiering.TieringOn = tieringOn
	current.Daemon.Addr = daemonAddr

	if err := config.Save(current); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `clawmon setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
