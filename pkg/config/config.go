package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Embedded default policy
// Use 'go generate ./pkg/config' to update from root config.toml
//
//go:generate cp ../../config.toml default_config.toml
//go:embed default_config.toml
var embeddedConfigData []byte

// Orphaned-sink handling modes.
const (
	OrphanedSinkError   = "error"
	OrphanedSinkExclude = "exclude"
)

// Config holds the classification policy.
type Config struct {
	Classification ClassificationConfig `toml:"classification"`
	Enumeration    EnumerationConfig    `toml:"enumeration"`
	Graph          GraphConfig          `toml:"graph"`
	Run            RunConfig            `toml:"run"`
}

// ClassificationConfig holds the verdict policy knobs. The defaults
// reproduce the fixed precedence rules; the knobs exist because the
// boundary between "mitigated but exploitable" and "safe" is a policy
// judgment, not a property of the graph.
type ClassificationConfig struct {
	WeakValidatorNeutralizes bool `toml:"weak_validator_neutralizes"`
	AuthGateProtects         bool `toml:"auth_gate_protects"`
}

// EnumerationConfig bounds path enumeration.
type EnumerationConfig struct {
	MaxNodeRevisits int `toml:"max_node_revisits"`
	MaxPathsPerSink int `toml:"max_paths_per_sink"`
}

// GraphConfig holds structural-input policy.
type GraphConfig struct {
	OrphanedSink string `toml:"orphaned_sink"`
}

// RunConfig holds whole-run operational settings.
type RunConfig struct {
	Workers int    `toml:"workers"`
	Timeout string `toml:"timeout"`
}

// DefaultConfig returns the default policy with optional local overrides.
// It always starts with the embedded policy, then optionally replaces it
// with a local config.toml.
func DefaultConfig() (*Config, error) {
	var config Config
	if err := toml.Unmarshal(embeddedConfigData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}

	// Look for a local config.toml to override defaults
	localConfigPaths := []string{
		"config.toml",       // Current directory (project root when running binary)
		"../config.toml",    // Parent directory (for tests in subdirs)
		"../../config.toml", // Two levels up (for tests in pkg/*)
	}

	for _, path := range localConfigPaths {
		if _, err := os.Stat(path); err == nil {
			localConfig, err := LoadFromFile(path)
			if err != nil {
				// Log warning but continue with embedded config
				fmt.Fprintf(os.Stderr, "Warning: failed to load local config %s: %v\n", path, err)
				break
			}
			return localConfig, nil
		}
	}

	return &config, nil
}

// LoadFromFile loads a policy from a TOML file.
func LoadFromFile(filepath string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(filepath, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", filepath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath, err)
	}
	return &config, nil
}

// Validate checks that the policy values are usable.
func (c *Config) Validate() error {
	switch c.Graph.OrphanedSink {
	case "", OrphanedSinkError, OrphanedSinkExclude:
	default:
		return fmt.Errorf("graph.orphaned_sink must be %q or %q, got %q",
			OrphanedSinkError, OrphanedSinkExclude, c.Graph.OrphanedSink)
	}
	if c.Enumeration.MaxNodeRevisits < 0 {
		return fmt.Errorf("enumeration.max_node_revisits must not be negative, got %d", c.Enumeration.MaxNodeRevisits)
	}
	if c.Enumeration.MaxPathsPerSink < 0 {
		return fmt.Errorf("enumeration.max_paths_per_sink must not be negative, got %d", c.Enumeration.MaxPathsPerSink)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must not be negative, got %d", c.Run.Workers)
	}
	if c.Run.Timeout != "" {
		if _, err := time.ParseDuration(c.Run.Timeout); err != nil {
			return fmt.Errorf("run.timeout: %w", err)
		}
	}
	return nil
}

// OrphanedSinkFatal reports whether an orphaned sink aborts the run.
// The zero value defaults to the strict behavior.
func (c *Config) OrphanedSinkFatal() bool {
	return c.Graph.OrphanedSink != OrphanedSinkExclude
}

// Timeout returns the parsed run timeout, or zero when none is set.
func (c *Config) Timeout() time.Duration {
	if c.Run.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Run.Timeout)
	if err != nil {
		return 0
	}
	return d
}
