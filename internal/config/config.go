// Package config loads the springconv configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats for the encode direction
const (
	FormatText = "txt"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatAll  = "all"
)

// Constants for default values
const (
	DefaultFormat          = FormatText
	DefaultBinaryExtension = ".bin"
	DefaultHistorySize     = 10
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
)

// Config is the springconv configuration, read from YAML and then overridden
// by command-line flags
type Config struct {
	OutputDir       string `yaml:"output_dir"`
	Format          string `yaml:"format"`
	Recursive       bool   `yaml:"recursive"`
	Workers         int    `yaml:"workers"`
	LayoutsPath     string `yaml:"layouts_path"`
	BinaryExtension string `yaml:"binary_extension"`
	Verify          bool   `yaml:"verify"`
	HistoryFile     string `yaml:"history_file"`
	HistorySize     int    `yaml:"history_size"`
	MetricsFile     string `yaml:"metrics_file"`
	Log             Log    `yaml:"log"`
}

// Log holds logger settings
type Log struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // "json" or "console"
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Format:          DefaultFormat,
		Workers:         runtime.NumCPU(),
		BinaryExtension: DefaultBinaryExtension,
		Verify:          true,
		HistoryFile:     defaultHistoryFile(),
		HistorySize:     DefaultHistorySize,
		Log: Log{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultPath returns the per-user configuration file location, or "" when
// the user config directory is unavailable
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "springconv", "config.yaml")
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "springconv", "recent.yaml")
}

// Load reads the configuration at path on top of the defaults. An empty path
// means DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatCSV, FormatAll:
	default:
		return fmt.Errorf("format must be one of %s, %s, %s, %s; got %q", FormatText, FormatJSON, FormatCSV, FormatAll, c.Format)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !strings.HasPrefix(c.BinaryExtension, ".") {
		return fmt.Errorf("binary_extension must start with a dot, got %q", c.BinaryExtension)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history_size must not be negative, got %d", c.HistorySize)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// Formats expands the configured format into the output extensions to write
func (c *Config) Formats() []string {
	if c.Format == FormatAll {
		return []string{FormatText, FormatJSON, FormatCSV}
	}
	return []string{c.Format}
}
