package health

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const marker = "[INJECTION-DEPTH:1] ... Recovered Conversation Context"

func writeSession(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := strings.Join(lines, "\n")
	if body != "" {
		body += "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func userMessage(content string) string {
	return `{"type":"message","message":{"role":"user","content":` + quote(content) + `}}`
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func TestDiscover_FiltersMetadataAndArchived(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "abc.jsonl")
	writeSession(t, dir, "def.jsonl")
	writeSession(t, dir, "sessions.json")
	writeSession(t, dir, "old.archived.jsonl")
	writeSession(t, dir, "notes.txt")

	m := NewMonitor(dir)
	paths := m.Discover()
	if len(paths) != 2 {
		t.Fatalf("Discover() = %v, want 2 session files", paths)
	}
	for _, p := range paths {
		base := filepath.Base(p)
		if base != "abc.jsonl" && base != "def.jsonl" {
			t.Errorf("unexpected discovery %q", base)
		}
	}
}

func TestDiscover_MissingDirIsEmpty(t *testing.T) {
	m := NewMonitor(filepath.Join(t.TempDir(), "nope"))
	if paths := m.Discover(); paths != nil {
		t.Errorf("Discover() = %v, want nil", paths)
	}
}

func TestAnalyze_CountsMessagesAndInjections(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "s1.jsonl",
		`{"type":"message","model":"claude-sonnet-4-20250514","message":{"role":"assistant","content":"hi"}}`,
		userMessage("plain message"),
		userMessage("recovered: "+marker),
		userMessage(marker+" and again "+marker),
		`{"type":"other","message":{"role":"user","content":"ignored"}}`,
	)

	m := NewMonitor(dir)
	h, err := m.Analyze(path)
	if err != nil {
		t.Fatal(err)
	}

	if h.MessageCount != 4 {
		t.Errorf("MessageCount = %d, want 4", h.MessageCount)
	}
	if h.InjectionCount != 3 {
		t.Errorf("InjectionCount = %d, want 3", h.InjectionCount)
	}
	if h.MaxNestedInjection != 2 {
		t.Errorf("MaxNestedInjection = %d, want 2", h.MaxNestedInjection)
	}
	if h.SessionID != "s1" {
		t.Errorf("SessionID = %q, want s1", h.SessionID)
	}
}

func TestAnalyze_NestedInjectionForcesCritical(t *testing.T) {
	dir := t.TempDir()
	// Tiny file, far under every size threshold: the nested marker alone
	// must force critical.
	path := writeSession(t, dir, "s1.jsonl",
		userMessage(marker+" then "+marker),
	)

	h, err := NewMonitor(dir).Analyze(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != StatusCritical {
		t.Errorf("Status = %s, want critical", h.Status)
	}
	if !strings.Contains(h.Recommendation, "feedback loop") {
		t.Errorf("Recommendation = %q, want feedback loop notice", h.Recommendation)
	}
}

func TestAnalyze_OversizedFileIsCritical(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "big.jsonl")
	// Extend to 11 MB without materializing the bytes.
	if err := os.Truncate(path, 11*1024*1024); err != nil {
		t.Fatal(err)
	}

	h, err := NewMonitor(dir).Analyze(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != StatusCritical {
		t.Errorf("Status = %s, want critical for 11MB file", h.Status)
	}
	if h.EstimatedTokens != 11*1024*1024/4 {
		t.Errorf("EstimatedTokens = %d, want size/4", h.EstimatedTokens)
	}
}

func TestAnalyze_UtilizationThresholds(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  Status
	}{
		// limit 200k tokens * 4 bytes/token = 800KB full context
		{"critical above 90%", 750 * 1024, StatusCritical},
		{"warning above 70%", 600 * 1024, StatusWarning},
		{"healthy below 70%", 400 * 1024, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeSession(t, dir, "s.jsonl")
			if err := os.Truncate(path, tt.bytes); err != nil {
				t.Fatal(err)
			}

			h, err := NewMonitor(dir).Analyze(path)
			if err != nil {
				t.Fatal(err)
			}
			if h.Status != tt.want {
				t.Errorf("Status = %s (util %.2f), want %s", h.Status, h.ContextUtilization, tt.want)
			}
		})
	}
}

func TestAnalyze_InjectionCountThresholds(t *testing.T) {
	dir := t.TempDir()

	// 12 single-marker messages: over the warning threshold, under critical,
	// and never more than one marker per message.
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, userMessage("ctx "+marker))
	}
	path := writeSession(t, dir, "warn.jsonl", lines...)

	h, err := NewMonitor(dir).Analyze(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != StatusWarning {
		t.Errorf("Status = %s, want warning at %d injections", h.Status, h.InjectionCount)
	}
	if h.MaxNestedInjection != 1 {
		t.Errorf("MaxNestedInjection = %d, want 1", h.MaxNestedInjection)
	}
}

func TestAnalyze_MalformedLinesSwallowed(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "s.jsonl",
		"not json",
		userMessage("fine"),
		`{"type":"message","broken`,
		userMessage("also fine"),
	)

	h, err := NewMonitor(dir).Analyze(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2 (malformed skipped)", h.MessageCount)
	}
	if h.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy", h.Status)
	}
}

func TestAnalyze_StructuredContent(t *testing.T) {
	dir := t.TempDir()
	// Content as a block list rather than a plain string still gets scanned.
	path := writeSession(t, dir, "s.jsonl",
		`{"type":"message","message":{"role":"user","content":[{"type":"text","text":"`+marker+`"}]}}`,
	)

	h, err := NewMonitor(dir).Analyze(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.InjectionCount != 1 {
		t.Errorf("InjectionCount = %d, want 1 from structured content", h.InjectionCount)
	}
}

func TestAnalyze_MissingFileErrors(t *testing.T) {
	m := NewMonitor(t.TempDir())
	if _, err := m.Analyze(filepath.Join(t.TempDir(), "gone.jsonl")); err == nil {
		t.Error("expected error for missing session file")
	}
}

func TestAnalyze_GrowthWarning(t *testing.T) {
	clock := newFakeClock()
	dir := t.TempDir()
	m := NewMonitorWithHistory(dir, NewGrowthHistoryWithClock(clock.Now))

	path := writeSession(t, dir, "fast.jsonl", userMessage("start"))

	if _, err := m.Analyze(path); err != nil {
		t.Fatal(err)
	}

	// Grow ~300KB in 30 seconds: 600 KB/min, still small enough that no
	// size or utilization threshold fires first.
	clock.Advance(30 * time.Second)
	filler := strings.Repeat("x", 300*1024)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(filler + "\n"); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	h, err := m.Analyze(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.GrowthKBPerMin < 500 {
		t.Fatalf("GrowthKBPerMin = %v, want > 500", h.GrowthKBPerMin)
	}
	if h.Status != StatusWarning {
		t.Errorf("Status = %s, want warning on rapid growth", h.Status)
	}
	if !strings.Contains(h.Recommendation, "Rapid growth") {
		t.Errorf("Recommendation = %q", h.Recommendation)
	}
}

// FuzzCountInjections tests that the content scanner never panics on
// arbitrary bytes, which matters since session logs are untrusted input.
func FuzzCountInjections(f *testing.F) {
	f.Add([]byte(`"plain user message"`))
	f.Add([]byte(`"` + marker + `"`))
	f.Add([]byte(`"` + marker + ` and ` + marker + `"`))
	f.Add([]byte(`[{"type":"text","text":"` + marker + `"}]`))
	f.Add([]byte(`[INJECTION-DEPTH:`))
	f.Add([]byte(`"[INJECTION-DEPTH:9]"`))
	f.Add([]byte(`{"nested":{"deep":true}}`))
	f.Add([]byte(``))
	f.Add([]byte(`"unterminated`))

	f.Fuzz(func(t *testing.T, data []byte) {
		if n := countInjections(data); n < 0 {
			t.Errorf("countInjections(%q) = %d, want >= 0", data, n)
		}
	})
}

func TestSessionsAndAlerts(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "ok.jsonl", userMessage("hello"))
	writeSession(t, dir, "bad.jsonl", userMessage(marker+" and "+marker))

	m := NewMonitor(dir)

	sessions := m.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("Sessions() = %d entries, want 2", len(sessions))
	}
	// Most severe first.
	if sessions[0].Status != StatusCritical {
		t.Errorf("first session status = %s, want critical", sessions[0].Status)
	}

	alerts := m.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("Alerts() = %d entries, want 1", len(alerts))
	}
	if alerts[0].SessionID != "bad" {
		t.Errorf("alert session = %q, want bad", alerts[0].SessionID)
	}
}
