package health

import (
	"sync"
	"time"
)

// growthWindow is the trailing window of size samples kept per session.
const growthWindow = 5 * time.Minute

// minRateElapsed guards the rate division against near-zero windows.
const minRateElapsed = 6 * time.Second

type sizeSample struct {
	at     time.Time
	sizeKB float64
}

// GrowthHistory tracks per-session file size samples and derives a growth
// rate over a trailing window. It is process-local state owned by exactly
// one Monitor: a fresh process always reports rate 0 on its first sample.
type GrowthHistory struct {
	mu      sync.Mutex
	now     func() time.Time
	samples map[string][]sizeSample
}

// NewGrowthHistory returns an empty history using the wall clock.
func NewGrowthHistory() *GrowthHistory {
	return NewGrowthHistoryWithClock(time.Now)
}

// NewGrowthHistoryWithClock injects a clock for deterministic tests.
func NewGrowthHistoryWithClock(now func() time.Time) *GrowthHistory {
	return &GrowthHistory{
		now:     now,
		samples: make(map[string][]sizeSample),
	}
}

// Observe records the current size for a session and returns the growth
// rate in KB per minute across the surviving window. Samples older than
// the trailing window are pruned on every call. Fewer than two surviving
// samples, or an elapsed span under ~6 seconds, yields rate 0; shrinking
// files clamp to 0 rather than reporting a negative rate.
func (h *GrowthHistory) Observe(sessionID string, sizeBytes int64) float64 {
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	history := append(h.samples[sessionID], sizeSample{at: now, sizeKB: float64(sizeBytes) / 1024})

	cutoff := now.Add(-growthWindow)
	for len(history) > 0 && !history[0].at.After(cutoff) {
		history = history[1:]
	}
	h.samples[sessionID] = history

	if len(history) < 2 {
		return 0
	}

	oldest := history[0]
	newest := history[len(history)-1]

	elapsed := newest.at.Sub(oldest.at)
	if elapsed < minRateElapsed {
		return 0
	}

	rate := (newest.sizeKB - oldest.sizeKB) / elapsed.Minutes()
	if rate < 0 {
		return 0
	}
	return rate
}

// Forget drops all samples for a session.
func (h *GrowthHistory) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.samples, sessionID)
}
