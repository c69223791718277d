package cost

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/clawmon/internal/pricing"
)

// Estimator calculates request costs and appends them to per-day JSONL logs.
type Estimator struct {
	table    *pricing.Table
	costsDir string
	now      func() time.Time
}

// NewEstimator returns an estimator writing daily logs under costsDir.
func NewEstimator(table *pricing.Table, costsDir string) *Estimator {
	return &Estimator{
		table:    table,
		costsDir: costsDir,
		now:      time.Now,
	}
}

// NewEstimatorWithClock injects a clock for deterministic tests.
func NewEstimatorWithClock(table *pricing.Table, costsDir string, now func() time.Time) *Estimator {
	e := NewEstimator(table, costsDir)
	e.now = now
	return e
}

// Calculate computes the cost breakdown for one request.
// Cache-read tokens are subtracted from fresh input (never double-billed);
// cache-write tokens bill separately at the cache-write rate.
func (e *Estimator) Calculate(model string, usage Usage) Breakdown {
	sheet := e.table.Resolve(model)
	u := usage.clamped()

	billableInput := u.InputTokens - u.CacheReadTokens
	if billableInput < 0 {
		billableInput = 0
	}

	return NewBreakdown(
		float64(billableInput)*sheet.InputPerMTok/1_000_000,
		float64(u.OutputTokens)*sheet.OutputPerMTok/1_000_000,
		float64(u.CacheReadTokens)*sheet.CacheReadPerMTok/1_000_000,
		float64(u.CacheWriteTokens)*sheet.CacheWritePerMTok/1_000_000,
	)
}

// Record computes the breakdown and appends one JSON line to today's log.
// The write is a single O_APPEND write of a complete newline-terminated
// record, so concurrent writers from separate processes interleave at line
// granularity without locking. The file is never read back or rewritten here.
func (e *Estimator) Record(model string, usage Usage, sessionID string) error {
	now := e.now().UTC()
	u := usage.clamped()
	bd := e.Calculate(model, u)

	rec := Record{
		Timestamp:        now.Format(time.RFC3339),
		Model:            model,
		InputTokens:      u.InputTokens,
		OutputTokens:     u.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens,
		InputCost:        bd.InputCost,
		OutputCost:       bd.OutputCost,
		CacheReadCost:    bd.CacheReadCost,
		CacheWriteCost:   bd.CacheWriteCost,
		TotalCost:        bd.Total,
		SessionID:        sessionID,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding cost record: %w", err)
	}

	if err := os.MkdirAll(e.costsDir, 0o750); err != nil {
		return fmt.Errorf("creating costs dir: %w", err)
	}

	path := e.logPath(now)
	//nolint:gosec // costs path is configured by the local user
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening cost log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending cost record: %w", err)
	}
	return nil
}

// Summary aggregates the given day's log. A missing file yields a zero
// summary, and malformed lines are skipped so a corrupt record never
// aborts the scan.
func (e *Estimator) Summary(day time.Time) DailySummary {
	date := day.UTC().Format("2006-01-02")
	summary := DailySummary{Date: date}

	//nolint:gosec // costs path is configured by the local user
	f, err := os.Open(e.logPath(day))
	if err != nil {
		return summary
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		summary.Requests++
		summary.TotalCost += rec.TotalCost
		summary.InputTokens += rec.InputTokens
		summary.OutputTokens += rec.OutputTokens
		summary.CacheReadTokens += rec.CacheReadTokens
	}

	return summary
}

// TodaySummary aggregates the current day's log.
func (e *Estimator) TodaySummary() DailySummary {
	return e.Summary(e.now())
}

// Savings multipliers: without caching, spend would have been ~1.4x; without
// tiering, ~1.3x. Applied successively, matching how the optimizations stack.
const (
	cachingMultiplier = 1.4
	tieringMultiplier = 1.3
)

// EstimateSavings projects what baseCost would have been without the enabled
// optimizations. A zero base short-circuits to an all-zero result.
func EstimateSavings(baseCost float64, caching, tiering bool) Savings {
	if baseCost == 0 {
		return Savings{}
	}

	multiplier := 1.0
	if caching {
		multiplier *= cachingMultiplier
	}
	if tiering {
		multiplier *= tieringMultiplier
	}

	without := baseCost * multiplier
	saved := without - baseCost

	s := Savings{
		BaseCost:         baseCost,
		EstimatedWithout: without,
		SavingsAmount:    saved,
	}
	if without > 0 {
		s.SavingsPercent = saved / without * 100
	}
	return s
}

func (e *Estimator) logPath(day time.Time) string {
	return filepath.Join(e.costsDir, day.UTC().Format("2006-01-02")+".jsonl")
}
