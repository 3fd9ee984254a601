// Package config provides configuration loading for thicket.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/jward/thicket/internal/lint"
)

// Config represents the complete thicket configuration
type Config struct {
	// Database is the SQLite file index and query commands use.
	Database string `yaml:"database"`
	// Languages limits analysis to these languages (empty = all supported).
	Languages []string `yaml:"languages"`
	// Include and Exclude are doublestar globs matched against
	// slash-separated paths relative to the project root.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	// Rules maps a rule name to off, info, warning or error.
	Rules   map[string]string `yaml:"rules"`
	Scripts ScriptsConfig     `yaml:"scripts"`
	// Parallel is the worker count for multi-file runs (0 = GOMAXPROCS).
	Parallel int `yaml:"parallel"`
}

// ScriptsConfig configures Risor rule scripts
type ScriptsConfig struct {
	// Enabled toggles script rules; nil means the default (enabled).
	Enabled *bool `yaml:"enabled,omitempty"`
	// Dir loads scripts from disk instead of the built-in set.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: ".thicket.db",
		Exclude:  []string{".git/**", "node_modules/**", "vendor/**"},
		Rules:    map[string]string{},
	}
}

// ScriptsEnabled reports whether rule scripts should run.
func (c *Config) ScriptsEnabled() bool {
	return c.Scripts.Enabled == nil || *c.Scripts.Enabled
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	for _, lang := range c.Languages {
		if lang != lint.LangTurtle && lang != lint.LangYAML {
			return fmt.Errorf("languages: unsupported language %q", lang)
		}
	}
	for _, pat := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid glob pattern %q", pat)
		}
	}
	for rule, sev := range c.Rules {
		if strings.EqualFold(sev, lint.Off) {
			continue
		}
		if _, err := lint.ParseSeverity(sev); err != nil {
			return fmt.Errorf("rules.%s: %w", rule, err)
		}
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values). Rule settings merge per rule.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Database != "" {
		c.Database = other.Database
	}
	if len(other.Languages) > 0 {
		c.Languages = other.Languages
	}
	if len(other.Include) > 0 {
		c.Include = other.Include
	}
	if len(other.Exclude) > 0 {
		c.Exclude = other.Exclude
	}
	if len(other.Rules) > 0 && c.Rules == nil {
		c.Rules = make(map[string]string, len(other.Rules))
	}
	for rule, sev := range other.Rules {
		c.Rules[rule] = sev
	}
	if other.Scripts.Enabled != nil {
		enabled := *other.Scripts.Enabled
		c.Scripts.Enabled = &enabled
	}
	if other.Scripts.Dir != "" {
		c.Scripts.Dir = other.Scripts.Dir
	}
	if other.Parallel != 0 {
		c.Parallel = other.Parallel
	}
}
