package pricing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_KnownModel(t *testing.T) {
	tbl := NewDefaultTable()

	sheet := tbl.Resolve("claude-opus-4-20250514")
	if sheet.InputPerMTok != 15.00 {
		t.Errorf("InputPerMTok = %.2f, want 15.00", sheet.InputPerMTok)
	}
	if sheet.OutputPerMTok != 75.00 {
		t.Errorf("OutputPerMTok = %.2f, want 75.00", sheet.OutputPerMTok)
	}
}

func TestResolve_Alias(t *testing.T) {
	tbl := NewDefaultTable()

	direct := tbl.Resolve("claude-haiku-3-5-20241022")
	viaAlias := tbl.Resolve("haiku")
	if direct != viaAlias {
		t.Errorf("alias lookup = %+v, want %+v", viaAlias, direct)
	}
}

func TestResolve_UnknownFallsBackToMidTier(t *testing.T) {
	tbl := NewDefaultTable()

	sheet := tbl.Resolve("totally-unknown-model")
	want := DefaultSheets[FallbackModel]
	if sheet != want {
		t.Errorf("unknown model sheet = %+v, want mid-tier %+v", sheet, want)
	}
	if tbl.Known("totally-unknown-model") {
		t.Error("Known() = true for unknown model")
	}
}

func TestNewTable_MissingFileUsesDefaults(t *testing.T) {
	tbl := NewTable(filepath.Join(t.TempDir(), "nope.json"))

	if got := tbl.Resolve("sonnet"); got != DefaultSheets[FallbackModel] {
		t.Errorf("sonnet sheet = %+v, want default %+v", got, DefaultSheets[FallbackModel])
	}
}

func TestNewTable_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	tbl := NewTable(path)
	if got := tbl.Resolve("opus"); got != DefaultSheets["claude-opus-4-20250514"] {
		t.Errorf("corrupt config did not fall back to defaults: %+v", got)
	}
}

func TestNewTable_ConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	body := `{
		"models": {
			"house-model": {
				"input_per_million": 1.0,
				"output_per_million": 2.0,
				"cache_read_per_million": 0.1,
				"cache_write_per_million": 1.25
			},
			"claude-sonnet-4-20250514": {
				"input_per_million": 3.0,
				"output_per_million": 15.0,
				"cache_read_per_million": 0.3,
				"cache_write_per_million": 3.75
			}
		},
		"aliases": {"house": "house-model"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	tbl := NewTable(path)

	sheet := tbl.Resolve("house")
	if sheet.InputPerMTok != 1.0 || sheet.OutputPerMTok != 2.0 {
		t.Errorf("house sheet = %+v", sheet)
	}

	// Unknown model still lands on the config's mid-tier entry.
	fallback := tbl.Resolve("mystery")
	if fallback.InputPerMTok != 3.0 {
		t.Errorf("fallback InputPerMTok = %.2f, want 3.0", fallback.InputPerMTok)
	}
}

func TestTierOrdering(t *testing.T) {
	tbl := NewDefaultTable()

	haiku := tbl.Resolve("haiku")
	sonnet := tbl.Resolve("sonnet")
	opus := tbl.Resolve("opus")

	if !(haiku.InputPerMTok < sonnet.InputPerMTok && sonnet.InputPerMTok < opus.InputPerMTok) {
		t.Errorf("input rates not ordered: haiku=%.2f sonnet=%.2f opus=%.2f",
			haiku.InputPerMTok, sonnet.InputPerMTok, opus.InputPerMTok)
	}
	if !(haiku.OutputPerMTok < sonnet.OutputPerMTok && sonnet.OutputPerMTok < opus.OutputPerMTok) {
		t.Errorf("output rates not ordered: haiku=%.2f sonnet=%.2f opus=%.2f",
			haiku.OutputPerMTok, sonnet.OutputPerMTok, opus.OutputPerMTok)
	}
}
