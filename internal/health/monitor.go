// Package health scans agent session logs for pathological growth and
// context-injection feedback loops.
package health

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Status is the health classification for one session.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// rank orders statuses by severity for sorting.
func (s Status) rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Session size and marker thresholds. Checked most severe first; the first
// triggered rule decides the status.
const (
	bytesPerToken       = 4
	sizeWarningKB       = 2_000
	sizeCriticalKB      = 10_000
	utilizationWarning  = 0.70
	utilizationCritical = 0.90
	injectionWarning    = 10
	injectionCritical   = 50
	nestedInjectionMax  = 1
	growthWarnKBPerMin  = 500
)

// metadataFile is the session index, never a session log itself.
const metadataFile = "sessions.json"

// archivedMarker in a filename excludes it from discovery.
const archivedMarker = ".archived."

// injectionPattern flags recovered-context blocks re-inserted into a user
// message. Two markers inside a single message indicate a feedback loop.
// The lazy quantifier keeps adjacent markers from coalescing into one match.
var injectionPattern = regexp.MustCompile(`\[INJECTION-DEPTH:[^\]]*\].{0,200}?Recovered Conversation Context`)

// contextLimits maps model ids to their context window in tokens.
var contextLimits = map[string]int64{
	"claude-opus-4-20250514":    200_000,
	"claude-sonnet-4-20250514":  200_000,
	"claude-haiku-3-5-20241022": 200_000,
}

// defaultContextLimit is used for unrecognized models: the largest known
// window, so utilization degrades toward under-reporting rather than
// false alarms.
const defaultContextLimit = 200_000

// Health describes one session's analyzed state.
type Health struct {
	SessionID          string  `json:"session_id"`
	FilePath           string  `json:"file_path"`
	SizeBytes          int64   `json:"size_bytes"`
	SizeKB             int64   `json:"size_kb"`
	EstimatedTokens    int64   `json:"estimated_tokens"`
	MessageCount       int     `json:"message_count"`
	InjectionCount     int     `json:"injection_count"`
	MaxNestedInjection int     `json:"max_nested_injections"`
	ContextUtilization float64 `json:"context_utilization"`
	GrowthKBPerMin     float64 `json:"growth_rate_kb_per_min"`
	Status             Status  `json:"status"`
	Recommendation     string  `json:"recommendation"`
}

// Monitor analyzes session logs in one directory. The growth history it
// owns is in-memory only, so rate detection is meaningful within a single
// long-lived process (the daemon), not across one-shot invocations.
type Monitor struct {
	sessionsDir string
	history     *GrowthHistory
}

// NewMonitor returns a monitor over sessionsDir with a fresh growth history.
func NewMonitor(sessionsDir string) *Monitor {
	return NewMonitorWithHistory(sessionsDir, NewGrowthHistory())
}

// NewMonitorWithHistory injects the growth history store, for tests with
// synthetic clocks and for callers sharing one store across scans.
func NewMonitorWithHistory(sessionsDir string, history *GrowthHistory) *Monitor {
	return &Monitor{sessionsDir: sessionsDir, history: history}
}

// Discover lists session log files in the monitored directory, excluding
// the metadata index and archived files. A missing directory yields nil.
func (m *Monitor) Discover() []string {
	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return nil
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".jsonl" {
			continue
		}
		if name == metadataFile || strings.Contains(name, archivedMarker) {
			continue
		}
		paths = append(paths, filepath.Join(m.sessionsDir, name))
	}
	return paths
}

// sessionEntry is one NDJSON line of a session log.
type sessionEntry struct {
	Type    string `json:"type"`
	Model   string `json:"model"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// Analyze inspects one session file. Malformed lines and mid-file read
// failures are swallowed; whatever was parsed before the failure still
// contributes to the result. Only a failed stat is an error, which callers
// treat as "omit this session".
func (m *Monitor) Analyze(path string) (Health, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Health{}, fmt.Errorf("stat session %s: %w", path, err)
	}

	h := Health{
		SessionID:       sessionID(path),
		FilePath:        path,
		SizeBytes:       info.Size(),
		SizeKB:          info.Size() / 1024,
		EstimatedTokens: info.Size() / bytesPerToken,
	}

	model := ""
	//nolint:gosec // session paths come from directory discovery
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
		for scanner.Scan() {
			var entry sessionEntry
			if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
				continue
			}
			if entry.Type != "message" {
				continue
			}
			h.MessageCount++
			if entry.Model != "" {
				model = entry.Model // last one wins
			}
			if entry.Message != nil && entry.Message.Role == "user" {
				n := countInjections(entry.Message.Content)
				h.InjectionCount += n
				if n > h.MaxNestedInjection {
					h.MaxNestedInjection = n
				}
			}
		}
		_ = f.Close()
	}

	limit, ok := contextLimits[model]
	if !ok {
		limit = defaultContextLimit
	}
	h.ContextUtilization = float64(h.EstimatedTokens) / float64(limit)

	h.GrowthKBPerMin = m.history.Observe(h.SessionID, h.SizeBytes)

	h.Status, h.Recommendation = classify(h)
	return h, nil
}

// classify applies the fixed precedence ladder: the most severe triggered
// condition wins and later, milder checks never downgrade it.
func classify(h Health) (Status, string) {
	switch {
	case h.MaxNestedInjection > nestedInjectionMax:
		return StatusCritical, fmt.Sprintf("Nested injection blocks detected (%d) - possible feedback loop", h.MaxNestedInjection)
	case h.SizeKB > sizeCriticalKB:
		return StatusCritical, "Session exceeds size limit - archive immediately"
	case h.InjectionCount > injectionCritical:
		return StatusCritical, fmt.Sprintf("High injection count (%d) - possible bloat", h.InjectionCount)
	case h.ContextUtilization > utilizationCritical:
		return StatusCritical, "Context window nearly full - archive soon"
	case h.SizeKB > sizeWarningKB:
		return StatusWarning, "Session growing large - monitor closely"
	case h.InjectionCount > injectionWarning:
		return StatusWarning, fmt.Sprintf("Elevated injection count (%d)", h.InjectionCount)
	case h.ContextUtilization > utilizationWarning:
		return StatusWarning, "Context utilization elevated"
	case h.GrowthKBPerMin > growthWarnKBPerMin:
		return StatusWarning, fmt.Sprintf("Rapid growth detected (%.0f KB/min)", h.GrowthKBPerMin)
	default:
		return StatusHealthy, "Session is healthy"
	}
}

// countInjections counts non-overlapping marker occurrences in a message
// content value, which may be a JSON string or structured content blocks.
func countInjections(content json.RawMessage) int {
	if len(content) == 0 {
		return 0
	}
	var text string
	if err := json.Unmarshal(content, &text); err != nil {
		// Structured content: match against the raw JSON text.
		text = string(content)
	}
	return len(injectionPattern.FindAllStringIndex(text, -1))
}

// Sessions analyzes every discovered session, sorted most severe first.
// Individual analysis failures omit that session rather than aborting.
func (m *Monitor) Sessions() []Health {
	var out []Health
	for _, path := range m.Discover() {
		h, err := m.Analyze(path)
		if err != nil {
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Status.rank() > out[j].Status.rank()
	})
	return out
}

// Alerts returns every session whose status is not healthy.
func (m *Monitor) Alerts() []Health {
	var alerts []Health
	for _, h := range m.Sessions() {
		if h.Status != StatusHealthy {
			alerts = append(alerts, h)
		}
	}
	return alerts
}

func sessionID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
