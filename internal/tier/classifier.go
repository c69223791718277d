// Package tier classifies user messages and recommends a model capability tier.
package tier

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Tier is one of three cost/capability classes.
type Tier string

const (
	Haiku  Tier = "haiku"
	Sonnet Tier = "sonnet"
	Opus   Tier = "opus"
)

// Default model id per tier, used for the concrete recommendation.
var defaultModelIDs = map[Tier]string{
	Haiku:  "claude-haiku-3-5-20241022",
	Sonnet: "claude-sonnet-4-20250514",
	Opus:   "claude-opus-4-20250514",
}

// Confidence is fixed per outcome class, not derived from match counts.
const (
	confidenceHaiku   = 0.85
	confidenceOpus    = 0.80
	confidenceSonnet  = 0.90
	confidenceDefault = 0.60
)

// DefaultMinConfidence gates tier switches in ShouldApply.
const DefaultMinConfidence = 0.7

// Built-in pattern groups. Evaluation order is cheapest-first and significant:
// escalate cost only on explicit signal, default conservatively.
var (
	defaultHaikuPatterns = []string{
		`^(what|which|where|when|who|how many)\b`,
		`\b(list|show|display|get)\s+(files?|dirs?|folders?)`,
		`^(yes|no|confirm|cancel|ok|done|thanks?|thank you)\b`,
		`\buse\s+(the\s+)?(grep|glob|read|bash)\s+tool`,
		`^(check|verify|validate|test)\s+(if|that|whether)`,
		`^(go to|open|navigate|cd)\s+`,
	}

	defaultOpusPatterns = []string{
		`\b(architect|design|plan)\b.*\b(system|service|infrastructure|api)`,
		`\b(trade-?off|compare|evaluate|contrast)\b.*\b(approach|solution|option|method)`,
		`\b(security|vulnerability|attack|threat)\b.*\b(audit|review|assess|analyze)`,
		`\b(optimize|performance|scalability)\b.*\b(system|architecture|design)`,
		`\b(debug|investigate|diagnose)\b.*\b(complex|mysterious|intermittent)`,
	}

	defaultSonnetPatterns = []string{
		`\b(write|create|implement|build|add|generate)\b.*\b(function|class|method|api|component)`,
		`\b(fix|debug|solve|resolve|repair)\b.*\b(bug|error|issue|problem)`,
		`\b(refactor|restructure|reorganize|clean up|improve)\b`,
		`\b(test|spec|coverage|unit test|integration test)\b`,
		`\b(document|explain|describe)\b.*\b(code|function|class|api)`,
	}
)

// Decision is the result of one classification call. Not persisted.
type Decision struct {
	Tier            Tier     `json:"recommended_tier"`
	ModelID         string   `json:"recommended_model_id"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`
	MatchedPatterns []string `json:"matched_patterns"`
}

// Message is one conversation turn. Only the latest user turn drives matching.
type Message struct {
	Role    string
	Content string
}

// Config is the optional JSON tiering config. Pattern lists replace the
// built-ins wholesale when present.
type Config struct {
	Enabled        *bool    `json:"enabled,omitempty"`
	DefaultModel   string   `json:"defaultModel,omitempty"`
	HaikuPatterns  []string `json:"haikuPatterns,omitempty"`
	OpusPatterns   []string `json:"opusPatterns,omitempty"`
	SonnetPatterns []string `json:"sonnetPatterns,omitempty"`
}

// LoadConfig reads a tiering config file. A missing or unreadable file
// yields the zero config (all built-in behavior), never an error.
func LoadConfig(path string) Config {
	var cfg Config
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path) //nolint:gosec // tiering path is configured by the local user
	if err != nil {
		return cfg
	}
	_ = json.Unmarshal(data, &cfg)
	return cfg
}

// ruleSet is one named pattern group mapped to a fixed outcome.
type ruleSet struct {
	tier       Tier
	confidence float64
	reason     string
	patterns   []compiledPattern
}

type compiledPattern struct {
	raw string
	re  *regexp.Regexp
}

// Classifier evaluates ordered rule sets against the latest user message.
type Classifier struct {
	rules       []ruleSet
	enabled     bool
	defaultTier Tier
}

// NewClassifier builds a classifier from the given config. Invalid patterns
// are dropped individually rather than failing construction.
func NewClassifier(cfg Config) *Classifier {
	enabled := true
	if cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}

	defaultTier := Sonnet
	if t := Tier(cfg.DefaultModel); t == Haiku || t == Sonnet || t == Opus {
		defaultTier = t
	}

	haiku := cfg.HaikuPatterns
	if haiku == nil {
		haiku = defaultHaikuPatterns
	}
	opus := cfg.OpusPatterns
	if opus == nil {
		opus = defaultOpusPatterns
	}
	sonnet := cfg.SonnetPatterns
	if sonnet == nil {
		sonnet = defaultSonnetPatterns
	}

	return &Classifier{
		enabled:     enabled,
		defaultTier: defaultTier,
		rules: []ruleSet{
			{Haiku, confidenceHaiku, "Simple query/operation detected", compile(haiku)},
			{Opus, confidenceOpus, "Complex reasoning/architecture task detected", compile(opus)},
			{Sonnet, confidenceSonnet, "Code generation/modification task detected", compile(sonnet)},
		},
	}
}

func compile(patterns []string) []compiledPattern {
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		out = append(out, compiledPattern{raw: p, re: re})
	}
	return out
}

// Classify recommends a tier for a single message text.
// Rule sets are scanned in order with early return: the first set with any
// match wins, and every matching pattern in that set is reported as evidence.
func (c *Classifier) Classify(message string) Decision {
	text := strings.TrimSpace(message)

	for _, rs := range c.rules {
		var matched []string
		for _, p := range rs.patterns {
			if p.re.MatchString(text) {
				matched = append(matched, fmt.Sprintf("%s:%s", rs.tier, p.raw))
			}
		}
		if len(matched) > 0 {
			return Decision{
				Tier:            rs.tier,
				ModelID:         defaultModelIDs[rs.tier],
				Confidence:      rs.confidence,
				Reason:          rs.reason,
				MatchedPatterns: matched,
			}
		}
	}

	return Decision{
		Tier:       c.defaultTier,
		ModelID:    defaultModelIDs[c.defaultTier],
		Confidence: confidenceDefault,
		Reason:     "No specific patterns matched, using default",
	}
}

// ClassifyMessages classifies a conversation, using only the most recent
// user-authored turn. Assistant turns are ignored for matching.
func (c *Classifier) ClassifyMessages(messages []Message) Decision {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return c.Classify(messages[i].Content)
		}
	}
	return c.Classify("")
}

// ShouldApply decides whether the caller should act on a decision.
// A disabled config suppresses all tiering, and the opus guardrail never
// authorizes moving away from the top tier; all other switches are allowed
// above the confidence floor.
func (c *Classifier) ShouldApply(currentModel string, d Decision, minConfidence float64) bool {
	if !c.enabled {
		return false
	}
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if d.Confidence < minConfidence {
		return false
	}
	if strings.Contains(strings.ToLower(currentModel), string(Opus)) && d.Tier != Opus {
		return false
	}
	return true
}

// Enabled reports whether tiering is switched on in the config.
func (c *Classifier) Enabled() bool {
	return c.enabled
}
