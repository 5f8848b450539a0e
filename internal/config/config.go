package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a claimforge run.
type Config struct {
	FilePath   string
	Dir        string
	OutPath    string
	ConfigPath string
	LogFormat  string // "text" or "json"
	LogLevel   string

	Model  ModelConfig  `yaml:"model"`
	Coding CodingConfig `yaml:"coding"`
	Claim  ClaimConfig  `yaml:"claim"`
	Batch  BatchConfig  `yaml:"batch"`
}

// ModelConfig configures the generative-model client.
type ModelConfig struct {
	Enabled         bool          `yaml:"enabled"`
	BaseURL         string        `yaml:"base_url"`
	Name            string        `yaml:"name"`
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     float64       `yaml:"temperature"`
	MaxTokens       int           `yaml:"max_tokens"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// CodingConfig tunes the coding assembler.
type CodingConfig struct {
	MinModelConfidence float64 `yaml:"min_model_confidence"`
}

// ClaimConfig tunes the claim builder.
type ClaimConfig struct {
	DefaultPlaceOfService string `yaml:"default_place_of_service"`
}

// BatchConfig tunes batch processing.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	LogFormat string        `yaml:"log_format"`
	LogLevel  string        `yaml:"log_level"`
	Model     *ModelConfig  `yaml:"model"`
	Coding    *CodingConfig `yaml:"coding"`
	Claim     *ClaimConfig  `yaml:"claim"`
	Batch     *BatchConfig  `yaml:"batch"`
}

var twoDigits = regexp.MustCompile(`^\d{2}$`)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogFormat: "text",
		LogLevel:  "info",
		Model: ModelConfig{
			BaseURL:         "http://localhost:11434",
			Name:            "llama3.1:8b",
			Timeout:         60 * time.Second,
			Temperature:     0.3,
			MaxTokens:       2000,
			BreakerFailures: 3,
			BreakerCooldown: 30 * time.Second,
		},
		Coding: CodingConfig{MinModelConfidence: 0.6},
		Claim:  ClaimConfig{DefaultPlaceOfService: "11"},
		Batch:  BatchConfig{Workers: 4},
	}
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Keys absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	yc := yamlConfig{
		LogFormat: c.LogFormat,
		LogLevel:  c.LogLevel,
		Model:     &c.Model,
		Coding:    &c.Coding,
		Claim:     &c.Claim,
		Batch:     &c.Batch,
	}
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	c.LogFormat = yc.LogFormat
	c.LogLevel = yc.LogLevel
	return c.Validate()
}

// Validate checks setting ranges and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Model.Enabled {
		if _, err := url.ParseRequestURI(c.Model.BaseURL); err != nil {
			return fmt.Errorf("invalid model base_url: %w", err)
		}
		if c.Model.Timeout <= 0 {
			return fmt.Errorf("model timeout must be positive")
		}
	}
	if c.Coding.MinModelConfidence < 0 || c.Coding.MinModelConfidence > 1 {
		return fmt.Errorf("min_model_confidence must be within [0,1], got %v", c.Coding.MinModelConfidence)
	}
	if !twoDigits.MatchString(c.Claim.DefaultPlaceOfService) {
		return fmt.Errorf("default_place_of_service must be 2 digits, got %q", c.Claim.DefaultPlaceOfService)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1")
	}
	return nil
}

// ValidateFile checks that --file points at a readable file.
func (c *Config) ValidateFile() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	return nil
}

// ValidateDir checks that --dir points at a directory.
func (c *Config) ValidateDir() error {
	if c.Dir == "" {
		return fmt.Errorf("--dir is required")
	}
	st, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("dir not accessible: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", c.Dir)
	}
	return nil
}
