// Package config provides configuration loading for pagescribe.
// Supports YAML files, a .env file, environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a pagescribe run.
type Config struct {
	DataDir       string              `yaml:"data_dir"`
	LLM           LLMConfig           `yaml:"llm"`
	Render        RenderConfig        `yaml:"render"`
	Processing    ProcessingConfig    `yaml:"processing"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig holds remote transcription endpoint settings.
type LLMConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	MaxTokens      int           `yaml:"max_tokens"`      // initial token budget per attempt
	AttemptTimeout time.Duration `yaml:"attempt_timeout"` // wall-clock ceiling for one transcribe call
}

// RenderConfig holds page rasterization settings.
type RenderConfig struct {
	MaxLongSide int `yaml:"max_long_side"` // longest image dimension in pixels
}

// ProcessingConfig holds orchestrator settings.
type ProcessingConfig struct {
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from an optional YAML file and applies .env and
// environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for a local
// model server.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		LLM: LLMConfig{
			BaseURL:        "http://localhost:1234/v1",
			Model:          "allenai/olmocr-2-7b",
			APIKey:         "lm-studio",
			MaxTokens:      4096,
			AttemptTimeout: 300 * time.Second,
		},
		Render: RenderConfig{
			MaxLongSide: 1288,
		},
		Processing: ProcessingConfig{
			MaxConsecutiveErrors: 3,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url must not be empty")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLM.AttemptTimeout < time.Second {
		return fmt.Errorf("llm.attempt_timeout must be at least 1s")
	}
	if c.Render.MaxLongSide < 64 {
		return fmt.Errorf("render.max_long_side must be at least 64")
	}
	if c.Processing.MaxConsecutiveErrors < 1 {
		return fmt.Errorf("processing.max_consecutive_errors must be positive")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}

	if v := os.Getenv("MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = n
		}
	}

	// Whole seconds, not a duration string.
	if v := os.Getenv("STREAM_CHUNK_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.AttemptTimeout = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("MAX_LONG_SIDE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Render.MaxLongSide = n
		}
	}

	if v := os.Getenv("MAX_CONSECUTIVE_ERRORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.MaxConsecutiveErrors = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
