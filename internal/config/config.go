package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by New and wherever a zero value means "unset".
const (
	DefaultWorkers             = 4
	DefaultMaxRetries          = 3
	DefaultMaxFileBytes        = 16 << 20
	DefaultInvalidRowThreshold = 0.5
	DefaultReviewBand          = 70
	DefaultFlaggedBand         = 90
	DefaultListenAddr          = ":8080"
)

// Config holds all runtime configuration for a claimload run.
type Config struct {
	DSN        string `yaml:"-"`
	ListenAddr string `yaml:"listen_addr"`
	LogFormat  string `yaml:"log_format"` // "text" or "json"

	PolicyPath string `yaml:"policy_path"`
	ArchiveDir string `yaml:"archive_dir"`

	Workers             int     `yaml:"workers"`
	MaxRetries          int     `yaml:"max_retries"`
	MaxFileBytes        int64   `yaml:"max_file_bytes"`
	InvalidRowThreshold float64 `yaml:"invalid_row_threshold"`

	ReviewBand  int    `yaml:"review_band"`
	FlaggedBand int    `yaml:"flagged_band"`
	Scorer      string `yaml:"scorer"` // "rules" or "model"

	// One-shot processing inputs, set by flags rather than YAML.
	FilePath string `yaml:"-"`
	Format   string `yaml:"-"`
}

// New returns a Config with all defaults applied.
func New() Config {
	return Config{
		ListenAddr:          DefaultListenAddr,
		LogFormat:           "text",
		Workers:             DefaultWorkers,
		MaxRetries:          DefaultMaxRetries,
		MaxFileBytes:        DefaultMaxFileBytes,
		InvalidRowThreshold: DefaultInvalidRowThreshold,
		ReviewBand:          DefaultReviewBand,
		FlaggedBand:         DefaultFlaggedBand,
		Scorer:              "rules",
	}
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Fields absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return c.Validate()
}

// Validate checks settings that apply to every command.
func (c *Config) Validate() error {
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.InvalidRowThreshold < 0 || c.InvalidRowThreshold > 1 {
		return fmt.Errorf("invalid row threshold must be in [0,1], got %g", c.InvalidRowThreshold)
	}
	if c.ReviewBand < 0 || c.ReviewBand > 100 || c.FlaggedBand < 0 || c.FlaggedBand > 100 {
		return fmt.Errorf("risk bands must be in [0,100], got review=%d flagged=%d", c.ReviewBand, c.FlaggedBand)
	}
	if c.ReviewBand > c.FlaggedBand {
		return fmt.Errorf("review band %d must not exceed flagged band %d", c.ReviewBand, c.FlaggedBand)
	}
	if c.Scorer != "" && c.Scorer != "rules" && c.Scorer != "model" {
		return fmt.Errorf("scorer must be rules or model, got %q", c.Scorer)
	}
	return nil
}

// ValidateFile additionally checks the one-shot input file.
func (c *Config) ValidateFile() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	return nil
}

// ValidateWithDSN additionally requires a database DSN.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
