// Package config loads and validates the optional .codewiki.yaml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/deixis/codewiki/internal/runner"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".codewiki.yaml"

// Default values for client configuration.
const (
	DefaultTimeout   = runner.DefaultTimeout
	DefaultMaxOutput = runner.DefaultMaxOutput
	DefaultLogLevel  = log.WarnLevel
)

// Config holds the parsed .codewiki.yaml configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int    `yaml:"version"`
	Executable   string `yaml:"executable"` // path to the codewiki tool; "~/" is expanded
	RawTimeout   string `yaml:"timeout"`    // e.g. "2m", "30s"
	RawMaxOutput int    `yaml:"max_output"` // bytes
	RawLogLevel  string `yaml:"log_level"`  // debug, info, warn, error
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() log.Level {
	if c.RawLogLevel != "" {
		if lvl, err := log.ParseLevel(c.RawLogLevel); err == nil {
			return lvl
		}
	}
	return DefaultLogLevel
}

// ExecutablePath returns the configured executable with a leading "~/"
// expanded against home. It returns "" when no executable is configured.
func (c *Config) ExecutablePath(home string) string {
	if len(c.Executable) >= 2 && c.Executable[:2] == "~/" && home != "" {
		return filepath.Join(home, c.Executable[2:])
	}
	return c.Executable
}

// Validate reports malformed values that would otherwise fall back to
// defaults silently.
func (c *Config) Validate() error {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout: must be positive, got %s", c.RawTimeout)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("max_output: must not be negative, got %d", c.RawMaxOutput)
	}
	if c.RawLogLevel != "" {
		if _, err := log.ParseLevel(c.RawLogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}

// LoadResult holds the parsed config and where it was read from.
type LoadResult struct {
	Config *Config
	Path   string // file that was loaded; empty when defaults are used
}

// Load reads the .codewiki.yaml file. It walks upward from dir looking
// for the file, then tries home. If neither has one, a default Config
// is returned.
func Load(dir, home string) (*LoadResult, error) {
	path, err := findConfig(dir)
	if err != nil && home != "" {
		candidate := filepath.Join(home, FileName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			path, err = candidate, nil
		}
	}
	if err != nil {
		return &LoadResult{Config: &Config{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

// findConfig walks upward from dir looking for FileName.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
