package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/clawmon/internal/cost"
	"github.com/theirongolddev/clawmon/internal/health"
)

func testWatch(t *testing.T) Watch {
	t.Helper()
	return NewWatch(t.TempDir(), t.TempDir(), "", 5*time.Second)
}

func update(t *testing.T, w Watch, msg tea.Msg) Watch {
	t.Helper()
	m, _ := w.Update(msg)
	next, ok := m.(Watch)
	if !ok {
		t.Fatalf("Update returned %T, want Watch", m)
	}
	return next
}

func scanned(sessions ...health.Health) scanMsg {
	return scanMsg{
		sessions: sessions,
		today:    cost.DailySummary{Requests: 3, TotalCost: 0.42},
		at:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestScanMsgLoadsSessions(t *testing.T) {
	w := testWatch(t)
	w = update(t, w, tea.WindowSizeMsg{Width: 100, Height: 40})
	w = update(t, w, scanned(
		health.Health{SessionID: "a", Status: health.StatusHealthy, Recommendation: "Session is healthy"},
		health.Health{SessionID: "b", Status: health.StatusWarning, Recommendation: "Session growing large - monitor closely"},
	))

	if !w.loaded {
		t.Fatal("loaded = false after scanMsg")
	}
	view := w.View()
	if !strings.Contains(view, "2 sessions") {
		t.Errorf("view missing session count:\n%s", view)
	}
	if !strings.Contains(view, "$0.42") {
		t.Errorf("view missing today's spend:\n%s", view)
	}
}

func TestCursorNavigationAndClamp(t *testing.T) {
	w := testWatch(t)
	w = update(t, w, tea.WindowSizeMsg{Width: 100, Height: 40})
	w = update(t, w, scanned(
		health.Health{SessionID: "a"},
		health.Health{SessionID: "b"},
	))

	w = update(t, w, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if w.cursor != 1 {
		t.Errorf("cursor = %d after j, want 1", w.cursor)
	}
	w = update(t, w, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if w.cursor != 1 {
		t.Errorf("cursor = %d, want clamp at 1", w.cursor)
	}

	// Sessions shrink under the cursor.
	w = update(t, w, scanned(health.Health{SessionID: "a"}))
	if w.cursor != 0 {
		t.Errorf("cursor = %d after shrink, want 0", w.cursor)
	}
}

func TestNarrowTerminalNotice(t *testing.T) {
	w := testWatch(t)
	w = update(t, w, tea.WindowSizeMsg{Width: 40, Height: 20})
	if !strings.Contains(w.View(), "too narrow") {
		t.Errorf("narrow view = %q", w.View())
	}
}

func TestTickTriggersRescan(t *testing.T) {
	w := testWatch(t)
	w = update(t, w, scanned())

	m, cmd := w.Update(tickMsg(time.Now()))
	w = m.(Watch)
	if !w.scanning {
		t.Error("scanning = false after tick")
	}
	if cmd == nil {
		t.Error("tick produced no follow-up commands")
	}
}
