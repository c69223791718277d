// Package cost calculates per-request API cost and tracks it in daily JSONL logs.
package cost

// Usage holds token counts for one API request. Any field may be zero.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
}

// clamped returns a copy with negative counts forced to zero.
func (u Usage) clamped() Usage {
	if u.InputTokens < 0 {
		u.InputTokens = 0
	}
	if u.OutputTokens < 0 {
		u.OutputTokens = 0
	}
	if u.CacheReadTokens < 0 {
		u.CacheReadTokens = 0
	}
	if u.CacheWriteTokens < 0 {
		u.CacheWriteTokens = 0
	}
	return u
}

// Breakdown holds the USD cost components for one request.
type Breakdown struct {
	InputCost      float64
	OutputCost     float64
	CacheReadCost  float64
	CacheWriteCost float64
	Total          float64
}

// NewBreakdown builds a breakdown from its components, deriving Total.
// This is the only path for fresh calculations.
func NewBreakdown(input, output, cacheRead, cacheWrite float64) Breakdown {
	return Breakdown{
		InputCost:      input,
		OutputCost:     output,
		CacheReadCost:  cacheRead,
		CacheWriteCost: cacheWrite,
		Total:          input + output + cacheRead + cacheWrite,
	}
}

// StoredBreakdown reconstructs a breakdown from persisted values, keeping the
// stored total as-is. Used only when reading records back from a log.
func StoredBreakdown(input, output, cacheRead, cacheWrite, total float64) Breakdown {
	return Breakdown{
		InputCost:      input,
		OutputCost:     output,
		CacheReadCost:  cacheRead,
		CacheWriteCost: cacheWrite,
		Total:          total,
	}
}

// Record is one immutable cost fact, appended to a daily log and never mutated.
// Field names match the JSONL wire format shared with other consumers.
type Record struct {
	Timestamp        string  `json:"timestamp"`
	Model            string  `json:"model"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	InputCost        float64 `json:"input_cost"`
	OutputCost       float64 `json:"output_cost"`
	CacheReadCost    float64 `json:"cache_read_cost"`
	CacheWriteCost   float64 `json:"cache_write_cost"`
	TotalCost        float64 `json:"total_cost"`
	SessionID        string  `json:"session_id,omitempty"`
}

// Breakdown reconstructs the cost breakdown from the stored record.
func (r Record) Breakdown() Breakdown {
	return StoredBreakdown(r.InputCost, r.OutputCost, r.CacheReadCost, r.CacheWriteCost, r.TotalCost)
}

// DailySummary aggregates one calendar day's records.
type DailySummary struct {
	Date            string  `json:"date"`
	Requests        int     `json:"requests"`
	TotalCost       float64 `json:"total_cost"`
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	CacheReadTokens int64   `json:"cache_read_tokens"`
}

// Savings holds a hypothetical what-if projection, not a measurement.
type Savings struct {
	BaseCost         float64 `json:"base_cost"`
	EstimatedWithout float64 `json:"estimated_without_optimization"`
	SavingsAmount    float64 `json:"savings"`
	SavingsPercent   float64 `json:"savings_percent"`
}
