// Package config loads the engine's own knobs: command deadline, analyzer
// concurrency/timeouts, and serializer idle teardown. Same shape as the
// teacher's internal/config/config.go — a YAML file merged with environment
// overrides, loaded through a testable LoadWithEnv(getenv) so tests never
// touch the real environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

// EngineConfig holds the engine's tunable knobs.
type EngineConfig struct {
	CommandTimeout           time.Duration `yaml:"command_timeout_ms"`
	AnalyzerConcurrency      int           `yaml:"analyzer_concurrency"`
	AnalyzerPerURLTimeout    time.Duration `yaml:"analyzer_per_url_timeout_ms"`
	AnalyzerJobBudget        time.Duration `yaml:"analyzer_job_budget_ms"`
	SerializerIdleTeardown   time.Duration `yaml:"serializer_idle_teardown_ms"`
}

type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			CommandTimeout:         5 * time.Second,
			AnalyzerConcurrency:    4,
			AnalyzerPerURLTimeout:  10 * time.Second,
			AnalyzerJobBudget:      30 * time.Second,
			SerializerIdleTeardown: 10 * time.Minute,
		},
		Cache: CacheConfig{
			TTL:        60 * time.Second,
			MaxEntries: 10000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// millisField unmarshals a YAML scalar given in milliseconds into a
// time.Duration, since the knob names (command_timeout_ms, etc.) are
// milliseconds, while yaml.v3 only parses time.Duration from Go's own
// duration syntax ("5s") out of the box.
type millisField time.Duration

func (m *millisField) UnmarshalYAML(value *yaml.Node) error {
	var ms int64
	if err := value.Decode(&ms); err != nil {
		return fmt.Errorf("expected an integer number of milliseconds, got %q", value.Value)
	}
	*m = millisField(time.Duration(ms) * time.Millisecond)
	return nil
}

// rawEngineConfig mirrors EngineConfig but with millisField in place of
// time.Duration, so yaml.Unmarshal can decode the ..._ms keys directly.
type rawEngineConfig struct {
	CommandTimeout         millisField `yaml:"command_timeout_ms"`
	AnalyzerConcurrency    int         `yaml:"analyzer_concurrency"`
	AnalyzerPerURLTimeout  millisField `yaml:"analyzer_per_url_timeout_ms"`
	AnalyzerJobBudget      millisField `yaml:"analyzer_job_budget_ms"`
	SerializerIdleTeardown millisField `yaml:"serializer_idle_teardown_ms"`
}

type rawConfig struct {
	Engine rawEngineConfig `yaml:"engine"`
	Cache  CacheConfig     `yaml:"cache"`
	Log    LogConfig       `yaml:"log"`
}

func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw rawConfig
	// Seed raw's zero-valued fields from c's current (default) values, so a
	// partial file only overrides the keys it mentions.
	raw.Engine = rawEngineConfig{
		CommandTimeout:         millisField(c.Engine.CommandTimeout),
		AnalyzerConcurrency:    c.Engine.AnalyzerConcurrency,
		AnalyzerPerURLTimeout:  millisField(c.Engine.AnalyzerPerURLTimeout),
		AnalyzerJobBudget:      millisField(c.Engine.AnalyzerJobBudget),
		SerializerIdleTeardown: millisField(c.Engine.SerializerIdleTeardown),
	}
	raw.Cache = c.Cache
	raw.Log = c.Log

	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.Engine = EngineConfig{
		CommandTimeout:         time.Duration(raw.Engine.CommandTimeout),
		AnalyzerConcurrency:    raw.Engine.AnalyzerConcurrency,
		AnalyzerPerURLTimeout:  time.Duration(raw.Engine.AnalyzerPerURLTimeout),
		AnalyzerJobBudget:      time.Duration(raw.Engine.AnalyzerJobBudget),
		SerializerIdleTeardown: time.Duration(raw.Engine.SerializerIdleTeardown),
	}
	c.Cache = raw.Cache
	c.Log = raw.Log
	return nil
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function. This allows tests to provide isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := getenv("OUTLINED_COMMAND_TIMEOUT_MS"); v != "" {
		d, err := parseMillisEnv(v)
		if err != nil {
			return nil, fmt.Errorf("OUTLINED_COMMAND_TIMEOUT_MS: %w", err)
		}
		cfg.Engine.CommandTimeout = d
	}
	if v := getenv("OUTLINED_ANALYZER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("OUTLINED_ANALYZER_CONCURRENCY: %w", err)
		}
		cfg.Engine.AnalyzerConcurrency = n
	}
	if v := getenv("OUTLINED_ANALYZER_PER_URL_TIMEOUT_MS"); v != "" {
		d, err := parseMillisEnv(v)
		if err != nil {
			return nil, fmt.Errorf("OUTLINED_ANALYZER_PER_URL_TIMEOUT_MS: %w", err)
		}
		cfg.Engine.AnalyzerPerURLTimeout = d
	}
	if v := getenv("OUTLINED_ANALYZER_JOB_BUDGET_MS"); v != "" {
		d, err := parseMillisEnv(v)
		if err != nil {
			return nil, fmt.Errorf("OUTLINED_ANALYZER_JOB_BUDGET_MS: %w", err)
		}
		cfg.Engine.AnalyzerJobBudget = d
	}
	if v := getenv("OUTLINED_SERIALIZER_IDLE_TEARDOWN_MS"); v != "" {
		d, err := parseMillisEnv(v)
		if err != nil {
			return nil, fmt.Errorf("OUTLINED_SERIALIZER_IDLE_TEARDOWN_MS: %w", err)
		}
		cfg.Engine.SerializerIdleTeardown = d
	}
	if v := getenv("OUTLINED_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

func parseMillisEnv(v string) (time.Duration, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected an integer number of milliseconds: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "outlined", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "outlined", "config.yaml")
}
