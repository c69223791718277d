package cost

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/clawmon/internal/pricing"
)

func testEstimator(t *testing.T) *Estimator {
	t.Helper()
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return NewEstimatorWithClock(pricing.NewDefaultTable(), t.TempDir(), func() time.Time { return fixed })
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculate_TotalIsSumOfComponents(t *testing.T) {
	e := testEstimator(t)

	usages := []Usage{
		{},
		{InputTokens: 1000},
		{InputTokens: 1000, OutputTokens: 500},
		{InputTokens: 2000, OutputTokens: 500, CacheReadTokens: 1000, CacheWriteTokens: 300},
		{InputTokens: 500, CacheReadTokens: 2000}, // cache read exceeds input
	}

	for _, u := range usages {
		bd := e.Calculate("sonnet", u)
		sum := bd.InputCost + bd.OutputCost + bd.CacheReadCost + bd.CacheWriteCost
		if !approx(bd.Total, sum) {
			t.Errorf("usage %+v: Total = %v, want sum %v", u, bd.Total, sum)
		}
		if bd.Total < 0 {
			t.Errorf("usage %+v: negative total %v", u, bd.Total)
		}
	}
}

func TestCalculate_BillableInputSubtractsCacheReads(t *testing.T) {
	e := testEstimator(t)

	// 2000 input with 1000 cache reads bills fresh input on exactly 1000
	// tokens; cache writes are billed separately, never subtracted.
	bd := e.Calculate("sonnet", Usage{InputTokens: 2000, CacheReadTokens: 1000, CacheWriteTokens: 500})

	wantInput := 1000.0 * 3.00 / 1_000_000
	if !approx(bd.InputCost, wantInput) {
		t.Errorf("InputCost = %v, want %v", bd.InputCost, wantInput)
	}
	wantWrite := 500.0 * 3.75 / 1_000_000
	if !approx(bd.CacheWriteCost, wantWrite) {
		t.Errorf("CacheWriteCost = %v, want %v", bd.CacheWriteCost, wantWrite)
	}
}

func TestCalculate_CacheReadsReduceTotal(t *testing.T) {
	e := testEstimator(t)

	plain := e.Calculate("sonnet", Usage{InputTokens: 2000, OutputTokens: 500})
	cached := e.Calculate("sonnet", Usage{InputTokens: 2000, OutputTokens: 500, CacheReadTokens: 1000})

	if cached.Total >= plain.Total {
		t.Errorf("cached total %v not less than uncached %v", cached.Total, plain.Total)
	}
}

func TestCalculate_TierOrdering(t *testing.T) {
	e := testEstimator(t)
	u := Usage{InputTokens: 1000, OutputTokens: 1000}

	haiku := e.Calculate("haiku", u).Total
	sonnet := e.Calculate("sonnet", u).Total
	opus := e.Calculate("opus", u).Total

	if !(haiku < sonnet && sonnet < opus) {
		t.Errorf("tier totals not ordered: haiku=%v sonnet=%v opus=%v", haiku, sonnet, opus)
	}
}

func TestCalculate_NegativeCountsClamped(t *testing.T) {
	e := testEstimator(t)

	bd := e.Calculate("sonnet", Usage{InputTokens: -100, OutputTokens: -5})
	if bd.Total != 0 {
		t.Errorf("Total = %v, want 0 for clamped negative usage", bd.Total)
	}
}

func TestCalculate_UnknownModelUsesFallback(t *testing.T) {
	e := testEstimator(t)
	u := Usage{InputTokens: 1_000_000}

	unknown := e.Calculate("never-heard-of-it", u)
	sonnet := e.Calculate("sonnet", u)
	if !approx(unknown.Total, sonnet.Total) {
		t.Errorf("unknown model total %v, want mid-tier %v", unknown.Total, sonnet.Total)
	}
}

func TestRecordAndSummary_PureFold(t *testing.T) {
	e := testEstimator(t)

	usages := []Usage{
		{InputTokens: 1000, OutputTokens: 200},
		{InputTokens: 2000, OutputTokens: 500, CacheReadTokens: 800},
		{InputTokens: 300, OutputTokens: 50, CacheWriteTokens: 100},
	}

	var wantTotal float64
	var wantInput, wantOutput, wantCached int64
	for i, u := range usages {
		if err := e.Record("sonnet", u, "sess-1"); err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
		wantTotal += e.Calculate("sonnet", u).Total
		wantInput += u.InputTokens
		wantOutput += u.OutputTokens
		wantCached += u.CacheReadTokens
	}

	s := e.TodaySummary()
	if s.Requests != len(usages) {
		t.Errorf("Requests = %d, want %d", s.Requests, len(usages))
	}
	if !approx(s.TotalCost, wantTotal) {
		t.Errorf("TotalCost = %v, want %v", s.TotalCost, wantTotal)
	}
	if s.InputTokens != wantInput || s.OutputTokens != wantOutput || s.CacheReadTokens != wantCached {
		t.Errorf("token sums = %d/%d/%d, want %d/%d/%d",
			s.InputTokens, s.OutputTokens, s.CacheReadTokens, wantInput, wantOutput, wantCached)
	}

	// Idempotence: re-reading an unmodified file yields the same summary.
	again := e.TodaySummary()
	if again != s {
		t.Errorf("second summary %+v differs from first %+v", again, s)
	}
}

func TestSummary_MissingFileIsZero(t *testing.T) {
	e := testEstimator(t)

	s := e.Summary(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if s.Requests != 0 || s.TotalCost != 0 {
		t.Errorf("missing file summary = %+v, want zeros", s)
	}
	if s.Date != "2024-01-01" {
		t.Errorf("Date = %q, want 2024-01-01", s.Date)
	}
}

func TestSummary_SkipsMalformedLines(t *testing.T) {
	e := testEstimator(t)

	if err := e.Record("sonnet", Usage{InputTokens: 1000}, ""); err != nil {
		t.Fatal(err)
	}

	// Interleave garbage directly into the log.
	path := e.logPath(e.now())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("not json at all\n{\"truncated\n"); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	if err := e.Record("sonnet", Usage{InputTokens: 1000}, ""); err != nil {
		t.Fatal(err)
	}

	s := e.TodaySummary()
	if s.Requests != 2 {
		t.Errorf("Requests = %d, want 2 (malformed lines excluded)", s.Requests)
	}
}

func TestRecord_ConcurrentAppendLineIntegrity(t *testing.T) {
	e := testEstimator(t)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := e.Record("sonnet", Usage{InputTokens: 100, OutputTokens: 10}, "concurrent"); err != nil {
					t.Errorf("Record: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(e.logPath(e.now()))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != writers*perWriter {
		t.Fatalf("line count = %d, want %d", len(lines), writers*perWriter)
	}

	s := e.TodaySummary()
	if s.Requests != writers*perWriter {
		t.Errorf("Requests = %d, want %d (no torn lines)", s.Requests, writers*perWriter)
	}
}

func TestRecord_CreatesCostsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "costs")
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	e := NewEstimatorWithClock(pricing.NewDefaultTable(), dir, func() time.Time { return fixed })

	if err := e.Record("sonnet", Usage{InputTokens: 100}, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "2025-06-01.jsonl")); err != nil {
		t.Errorf("expected daily log file: %v", err)
	}
}

func TestEstimateSavings(t *testing.T) {
	tests := []struct {
		name             string
		base             float64
		caching, tiering bool
		wantWithout      float64
	}{
		{"both", 10, true, true, 10 * 1.4 * 1.3},
		{"caching only", 10, true, false, 14},
		{"tiering only", 10, false, true, 13},
		{"neither", 10, false, false, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := EstimateSavings(tt.base, tt.caching, tt.tiering)
			if !approx(s.EstimatedWithout, tt.wantWithout) {
				t.Errorf("EstimatedWithout = %v, want %v", s.EstimatedWithout, tt.wantWithout)
			}
			if !approx(s.SavingsAmount, tt.wantWithout-tt.base) {
				t.Errorf("SavingsAmount = %v, want %v", s.SavingsAmount, tt.wantWithout-tt.base)
			}
			wantPct := (tt.wantWithout - tt.base) / tt.wantWithout * 100
			if !approx(s.SavingsPercent, wantPct) {
				t.Errorf("SavingsPercent = %v, want %v", s.SavingsPercent, wantPct)
			}
		})
	}
}

func TestEstimateSavings_ZeroBaseShortCircuits(t *testing.T) {
	s := EstimateSavings(0, true, true)
	if s != (Savings{}) {
		t.Errorf("zero base savings = %+v, want all zeros", s)
	}
}

func TestStoredBreakdown_KeepsOverriddenTotal(t *testing.T) {
	bd := StoredBreakdown(1, 2, 3, 4, 99)
	if bd.Total != 99 {
		t.Errorf("Total = %v, want stored 99", bd.Total)
	}

	fresh := NewBreakdown(1, 2, 3, 4)
	if fresh.Total != 10 {
		t.Errorf("fresh Total = %v, want 10", fresh.Total)
	}
}
