// Package config loads the optional recompose-sim TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config represents the optional sim.toml configuration.
type Config struct {
	Log LogConfig `toml:"log"`
	Sim SimConfig `toml:"sim"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// Pretty enables the human-readable console writer.
	Pretty bool `toml:"pretty"`
}

// SimConfig contains simulation settings.
type SimConfig struct {
	// MaxTicksPerStep bounds how many ticks one step may take to settle.
	MaxTicksPerStep int `toml:"max_ticks_per_step"`
	// TraceEffects logs every applied effect, not just per-step counts.
	TraceEffects bool `toml:"trace_effects"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Pretty: true},
		Sim: SimConfig{MaxTicksPerStep: 8},
	}
}

// LoadOptional reads the TOML file at path if it exists, applying
// defaults for anything unset. An empty path returns the defaults.
func LoadOptional(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogLevel parses the configured level name.
func (c *Config) LogLevel() (zerolog.Level, error) {
	return zerolog.ParseLevel(c.Log.Level)
}

func (c *Config) validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	if c.Sim.MaxTicksPerStep < 1 {
		return fmt.Errorf("sim.max_ticks_per_step must be at least 1 (got %d)", c.Sim.MaxTicksPerStep)
	}
	return nil
}
