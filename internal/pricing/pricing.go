// Package pricing resolves model identifiers to per-million-token price sheets.
package pricing

import (
	"encoding/json"
	"os"
)

// Sheet holds per-million-token prices for one model.
type Sheet struct {
	InputPerMTok      float64 `json:"input_per_million"`
	OutputPerMTok     float64 `json:"output_per_million"`
	CacheReadPerMTok  float64 `json:"cache_read_per_million"`
	CacheWritePerMTok float64 `json:"cache_write_per_million"`
}

// fileFormat mirrors the on-disk pricing config:
//
//	{"models": {"claude-sonnet-4-20250514": {...}}, "aliases": {"sonnet": "claude-sonnet-4-20250514"}}
type fileFormat struct {
	Models  map[string]Sheet  `json:"models"`
	Aliases map[string]string `json:"aliases"`
}

// FallbackModel is the model whose sheet is used when a lookup misses.
// Billing must estimate conservatively rather than fail, so unknown models
// are priced as mid-tier.
const FallbackModel = "claude-sonnet-4-20250514"

// DefaultSheets covers the three capability tiers.
var DefaultSheets = map[string]Sheet{
	"claude-haiku-3-5-20241022": {
		InputPerMTok: 0.80, OutputPerMTok: 4.00,
		CacheReadPerMTok: 0.08, CacheWritePerMTok: 1.00,
	},
	"claude-sonnet-4-20250514": {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheReadPerMTok: 0.30, CacheWritePerMTok: 3.75,
	},
	"claude-opus-4-20250514": {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheReadPerMTok: 1.50, CacheWritePerMTok: 18.75,
	},
}

// DefaultAliases maps tier shorthands to concrete model ids.
var DefaultAliases = map[string]string{
	"haiku":  "claude-haiku-3-5-20241022",
	"sonnet": "claude-sonnet-4-20250514",
	"opus":   "claude-opus-4-20250514",
}

// Table is an immutable model → price sheet lookup, loaded once at construction.
type Table struct {
	models  map[string]Sheet
	aliases map[string]string
}

// NewTable reads a pricing config file and returns a ready table.
// A missing or unreadable file silently yields the built-in defaults;
// pricing is advisory and must never abort the caller's workflow.
func NewTable(path string) *Table {
	t := &Table{
		models:  DefaultSheets,
		aliases: DefaultAliases,
	}

	if path == "" {
		return t
	}
	data, err := os.ReadFile(path) //nolint:gosec // pricing path is configured by the local user
	if err != nil {
		return t
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return t
	}
	if len(ff.Models) > 0 {
		t.models = ff.Models
	}
	if ff.Aliases != nil {
		t.aliases = ff.Aliases
	}
	return t
}

// NewDefaultTable returns a table backed only by the built-in sheets.
func NewDefaultTable() *Table {
	return NewTable("")
}

// canonical applies a single flat alias lookup. Unresolved names pass through.
func (t *Table) canonical(model string) string {
	if id, ok := t.aliases[model]; ok {
		return id
	}
	return model
}

// Resolve returns the price sheet for a model, falling back to the built-in
// mid-tier sheet when the model is unknown.
func (t *Table) Resolve(model string) Sheet {
	id := t.canonical(model)
	if sheet, ok := t.models[id]; ok {
		return sheet
	}
	if sheet, ok := t.models[FallbackModel]; ok {
		return sheet
	}
	return DefaultSheets[FallbackModel]
}

// Known reports whether the model (after alias resolution) has its own sheet.
func (t *Table) Known(model string) bool {
	_, ok := t.models[t.canonical(model)]
	return ok
}
