// Package config loads clawmon settings from an XDG-style toml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all clawmon configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Tiering TieringConfig `toml:"tiering"`
	Daemon  DaemonConfig  `toml:"daemon"`
}

// GeneralConfig holds data locations. The pricing and tiering files stay
// JSON: they are shared contracts with the host agent, not clawmon-private
// settings.
type GeneralConfig struct {
	SessionsDir string `toml:"sessions_dir,omitempty"`
	CostsDir    string `toml:"costs_dir,omitempty"`
	PricingFile string `toml:"pricing_file,omitempty"`
	TierFile    string `toml:"tier_file,omitempty"`
}

// TieringConfig holds guardrail settings for acting on tier decisions,
// plus which optimizations the savings projection assumes are active.
type TieringConfig struct {
	MinConfidence float64 `toml:"min_confidence"`
	CachingOn     bool    `toml:"caching_on"`
	TieringOn     bool    `toml:"tiering_on"`
}

// DaemonConfig holds defaults for the background monitor.
type DaemonConfig struct {
	Addr            string `toml:"addr,omitempty"`
	IntervalSeconds int    `toml:"interval_seconds,omitempty"`
}

// DataDir returns the clawmon data directory (costs, config JSON files).
func DataDir() string {
	if dir := os.Getenv("CLAWMON_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".clawmon")
}

// DefaultSessionsDir is where the host agent keeps its session logs.
func DefaultSessionsDir() string {
	if dir := os.Getenv("CLAWMON_SESSIONS_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".openclaw", "agents", "main", "sessions")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			SessionsDir: DefaultSessionsDir(),
			CostsDir:    filepath.Join(DataDir(), "costs"),
			PricingFile: filepath.Join(DataDir(), "model_pricing.json"),
			TierFile:    filepath.Join(DataDir(), "tiering.json"),
		},
		Tiering: TieringConfig{
			MinConfidence: 0.7,
			CachingOn:     true,
			TieringOn:     true,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8791",
			IntervalSeconds: 15,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clawmon")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "clawmon")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
