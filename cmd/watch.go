package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/clawmon/internal/tui"
)

var flagWatchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live session health dashboard",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagWatchInterval, "interval", 5*time.Second, "Rescan interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	model := tui.NewWatch(cfg.General.SessionsDir, cfg.General.CostsDir, cfg.General.PricingFile, flagWatchInterval)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}

	return nil
}
