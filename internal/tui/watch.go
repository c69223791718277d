// Package tui implements the live session watch screen.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/clawmon/internal/cli"
	"github.com/theirongolddev/clawmon/internal/cost"
	"github.com/theirongolddev/clawmon/internal/health"
	"github.com/theirongolddev/clawmon/internal/pricing"
)

const minTerminalWidth = 60

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(cli.ColorText)
	labelStyle  = lipgloss.NewStyle().Foreground(cli.ColorTextMuted)
	valueStyle  = lipgloss.NewStyle().Foreground(cli.ColorText)
	accentStyle = lipgloss.NewStyle().Foreground(cli.ColorAccent)
	dimStyle    = lipgloss.NewStyle().Foreground(cli.ColorTextDim)
	selectStyle = lipgloss.NewStyle().Foreground(cli.ColorText).Background(cli.ColorBorder)
)

// scanMsg carries one completed scan back into the update loop.
type scanMsg struct {
	sessions []health.Health
	today    cost.DailySummary
	at       time.Time
}

type tickMsg time.Time

// Watch is the live monitoring model. The monitor is shared across scans
// so the growth history accumulates samples and rates become meaningful.
type Watch struct {
	monitor   *health.Monitor
	estimator *cost.Estimator
	interval  time.Duration

	width  int
	height int
	cursor int

	loaded   bool
	scanning bool
	lastScan time.Time
	sessions []health.Health
	today    cost.DailySummary

	spinner spinner.Model
}

// NewWatch creates the watch model over the given directories.
func NewWatch(sessionsDir, costsDir, pricingFile string, interval time.Duration) Watch {
	if interval < 2*time.Second {
		interval = 5 * time.Second
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)

	return Watch{
		monitor:   health.NewMonitor(sessionsDir),
		estimator: cost.NewEstimator(pricing.NewTable(pricingFile), costsDir),
		interval:  interval,
		spinner:   sp,
	}
}

// Init implements tea.Model.
func (w Watch) Init() tea.Cmd {
	return tea.Batch(w.scanCmd(), w.spinner.Tick, w.tickCmd())
}

func (w Watch) scanCmd() tea.Cmd {
	monitor := w.monitor
	estimator := w.estimator
	return func() tea.Msg {
		return scanMsg{
			sessions: monitor.Sessions(),
			today:    estimator.TodaySummary(),
			at:       time.Now(),
		}
	}
}

func (w Watch) tickCmd() tea.Cmd {
	return tea.Tick(w.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (w Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return w, tea.Quit
		case "j", "down":
			if w.cursor < len(w.sessions)-1 {
				w.cursor++
			}
		case "k", "up":
			if w.cursor > 0 {
				w.cursor--
			}
		case "r":
			if !w.scanning {
				w.scanning = true
				return w, w.scanCmd()
			}
		}
		return w, nil

	case scanMsg:
		w.loaded = true
		w.scanning = false
		w.sessions = msg.sessions
		w.today = msg.today
		w.lastScan = msg.at
		if w.cursor >= len(w.sessions) {
			w.cursor = len(w.sessions) - 1
		}
		if w.cursor < 0 {
			w.cursor = 0
		}
		return w, nil

	case tickMsg:
		cmds := []tea.Cmd{w.tickCmd()}
		if !w.scanning {
			w.scanning = true
			cmds = append(cmds, w.scanCmd())
		}
		return w, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}

	return w, nil
}

// View implements tea.Model.
func (w Watch) View() string {
	if w.width == 0 {
		return ""
	}
	if w.width < minTerminalWidth {
		return labelStyle.Render(fmt.Sprintf("\n  Terminal too narrow (%d cols, need %d)\n", w.width, minTerminalWidth))
	}
	if !w.loaded {
		return fmt.Sprintf("\n  %s Scanning sessions...\n", w.spinner.View())
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("  clawmon watch"))
	b.WriteString("\n\n")
	b.WriteString(w.viewSummary())
	b.WriteString("\n")
	b.WriteString(w.viewSessions())
	b.WriteString("\n")
	b.WriteString(w.viewDetail())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  j/k select · r refresh · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (w Watch) viewSummary() string {
	var healthy, warning, critical int
	for _, h := range w.sessions {
		switch h.Status {
		case health.StatusCritical:
			critical++
		case health.StatusWarning:
			warning++
		default:
			healthy++
		}
	}

	counts := fmt.Sprintf("%d sessions · %d healthy · %d warning · %d critical",
		len(w.sessions), healthy, warning, critical)
	spend := fmt.Sprintf("today %s / %s requests",
		cli.FormatCost(w.today.TotalCost), cli.FormatNumber(int64(w.today.Requests)))

	line := "  " + valueStyle.Render(counts) + labelStyle.Render("   "+spend)
	if w.scanning {
		line += "  " + w.spinner.View()
	} else {
		line += dimStyle.Render(fmt.Sprintf("   scanned %s", w.lastScan.Format("15:04:05")))
	}
	return line + "\n"
}

func (w Watch) viewSessions() string {
	if len(w.sessions) == 0 {
		return labelStyle.Render("  No session files found.") + "\n"
	}

	var b strings.Builder
	header := fmt.Sprintf("  %-22s %8s %6s %5s %8s %12s %s",
		"SESSION", "SIZE", "MSGS", "INJ", "CONTEXT", "GROWTH", "STATUS")
	b.WriteString(accentStyle.Render(header))
	b.WriteString("\n")

	for i, h := range w.sessions {
		row := fmt.Sprintf("  %-22s %8s %6d %5d %8s %12s ",
			truncate(h.SessionID, 22),
			cli.FormatSize(h.SizeBytes),
			h.MessageCount,
			h.InjectionCount,
			cli.FormatPercent(h.ContextUtilization),
			cli.FormatRate(h.GrowthKBPerMin),
		)
		if i == w.cursor {
			b.WriteString(selectStyle.Render(row))
		} else {
			b.WriteString(valueStyle.Render(row))
		}
		b.WriteString(cli.RenderStatus(h.Status))
		b.WriteString("\n")
	}
	return b.String()
}

func (w Watch) viewDetail() string {
	if w.cursor < 0 || w.cursor >= len(w.sessions) {
		return ""
	}
	h := w.sessions[w.cursor]

	var b strings.Builder
	b.WriteString(labelStyle.Render("  " + h.FilePath))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  %s\n",
		cli.RenderUtilizationBar(h.ContextUtilization, 24),
		labelStyle.Render(fmt.Sprintf("~%s tokens", cli.FormatTokens(h.EstimatedTokens)))))
	b.WriteString(valueStyle.Render("  " + h.Recommendation))
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
