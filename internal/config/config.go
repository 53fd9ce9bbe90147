// Package config loads the runtime's recognised options with the
// precedence defaults → YAML file → environment → explicit overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

// Config holds every recognised runtime option plus the ambient fields
// (logging, API address) the daemon and CLI need.
type Config struct {
	MaxTurns int `mapstructure:"max_turns"`
	MaxContextWindowFraction float64 `mapstructure:"max_context_window_fraction"`
	MaxToolCallsPerTurn int `mapstructure:"max_tool_calls_per_turn"`
	MaxSubtaskDepth int `mapstructure:"max_subtask_depth"`
	DefaultModel string `mapstructure:"default_model"`
	Provider string `mapstructure:"provider"`

	LogLevel string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	APIAddr string `mapstructure:"api_addr"`
}

// Defaults returns the runtime's built-in option defaults.
func Defaults() Config {
	return Config{
		MaxTurns: 10,
		MaxContextWindowFraction: 0.8,
		MaxToolCallsPerTurn: 8,
		MaxSubtaskDepth: 10,
		DefaultModel: "mock-model",
		Provider: "mock",
		LogLevel: "info",
		LogFormat: "text",
		APIAddr: "127.0.0.1:8099",
	}
}

// Load resolves a Config using viper's layered precedence: built-in
// defaults, then an optional YAML file at path (skipped silently if path is
// empty or the file does not exist), then TASKRT_*-prefixed environment
// variables, overriding any matching key.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TASKRT")
	v.AutomaticEnv()

	defaults := Defaults()
	v.SetDefault("max_turns", defaults.MaxTurns)
	v.SetDefault("max_context_window_fraction", defaults.MaxContextWindowFraction)
	v.SetDefault("max_tool_calls_per_turn", defaults.MaxToolCallsPerTurn)
	v.SetDefault("max_subtask_depth", defaults.MaxSubtaskDepth)
	v.SetDefault("default_model", defaults.DefaultModel)
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("api_addr", defaults.APIAddr)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return cfg, nil
}

// Override applies explicit per-field overrides (e.g. CLI flags), taking
// the highest precedence.
func (c Config) Override(fn func(*Config)) Config {
	fn(&c)
	return c
}
