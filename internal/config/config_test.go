package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "http://localhost:1234/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 300*time.Second, cfg.LLM.AttemptTimeout)
	assert.Equal(t, 1288, cfg.Render.MaxLongSide)
	assert.Equal(t, 3, cfg.Processing.MaxConsecutiveErrors)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLFile(t *testing.T) {
	content := `
data_dir: /srv/scans
llm:
  base_url: http://model-host:8080/v1
  model: custom/model
  max_tokens: 2048
render:
  max_long_side: 2048
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/scans", cfg.DataDir)
	assert.Equal(t, "http://model-host:8080/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "custom/model", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, 2048, cfg.Render.MaxLongSide)
	// Untouched values keep their defaults.
	assert.Equal(t, 300*time.Second, cfg.LLM.AttemptTimeout)
	assert.Equal(t, 3, cfg.Processing.MaxConsecutiveErrors)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/mnt/books")
	t.Setenv("LLM_MODEL", "env/model")
	t.Setenv("MAX_TOKENS", "1024")
	t.Setenv("STREAM_CHUNK_TIMEOUT", "120")
	t.Setenv("MAX_CONSECUTIVE_ERRORS", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/mnt/books", cfg.DataDir)
	assert.Equal(t, "env/model", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, 120*time.Second, cfg.LLM.AttemptTimeout)
	assert.Equal(t, 5, cfg.Processing.MaxConsecutiveErrors)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	content := "data_dir: /from/file\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("DATA_DIR", "/from/env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty base url", func(c *Config) { c.LLM.BaseURL = "" }},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }},
		{"sub-second timeout", func(c *Config) { c.LLM.AttemptTimeout = 500 * time.Millisecond }},
		{"tiny long side", func(c *Config) { c.Render.MaxLongSide = 10 }},
		{"zero error threshold", func(c *Config) { c.Processing.MaxConsecutiveErrors = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
