package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/bundlever/internal/loggerx"
	"github.com/danieljhkim/bundlever/internal/version"
)

// DefaultSetVersion is the text offered when setting an explicit version.
const DefaultSetVersion = "1.0.0.qualifier"

// Config is the user configuration read from config.yaml.
type Config struct {
	// Workspace is the workspace used when no flag or session preference is set.
	Workspace string `yaml:"workspace"`

	// DefaultVersion seeds the "set version" input.
	DefaultVersion string `yaml:"defaultVersion"`

	Log  loggerx.Config `yaml:"log"`
	Scan ScanConfig     `yaml:"scan"`
}

// ScanConfig tunes workspace scanning.
type ScanConfig struct {
	// MaxDepth limits how deep below the workspace root plugin projects are searched.
	MaxDepth int `yaml:"maxDepth"`

	// Concurrency bounds parallel manifest reads.
	Concurrency int `yaml:"concurrency"`

	// Exclude lists directory names that are never descended into.
	Exclude []string `yaml:"exclude"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultVersion: DefaultSetVersion,
		Log: loggerx.Config{
			Level: "warn",
		},
		Scan: ScanConfig{
			MaxDepth:    3,
			Concurrency: runtime.NumCPU(),
			Exclude:     []string{".git", ".metadata", "bin", "target", "node_modules"},
		},
	}
}

// Load reads the config file at path. A missing file yields Default().
// Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges and the default version text.
func (c *Config) Validate() error {
	if c.Scan.MaxDepth < 1 {
		return fmt.Errorf("scan.maxDepth must be at least 1, got %d", c.Scan.MaxDepth)
	}
	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be at least 1, got %d", c.Scan.Concurrency)
	}
	if c.DefaultVersion != "" {
		if _, err := version.Parse(c.DefaultVersion); err != nil {
			return fmt.Errorf("defaultVersion: %w", err)
		}
	}
	return nil
}
