package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6000, cfg.Extraction.MaxCharsPerArtifact)
	assert.Equal(t, 500, cfg.Extraction.MinUsefulChars)
	assert.InDelta(t, 0.5, cfg.Extraction.OverlapThreshold, 1e-9)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing state dir", func(c *Config) { c.Storage.StateDir = "" }},
		{"zero char budget", func(c *Config) { c.Extraction.MaxCharsPerArtifact = 0 }},
		{"overlap out of range", func(c *Config) { c.Extraction.OverlapThreshold = 1.5 }},
		{"chunk overlap too large", func(c *Config) { c.Extraction.ChunkOverlap = 9000 }},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "openai" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
extraction:
  max_chars_per_artifact: 4000
  min_useful_chars: 300
embeddings:
  provider: local
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("EXTRACTION_MIN_USEFUL_CHARS", "250")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Extraction.MaxCharsPerArtifact, "yaml overrides default")
	assert.Equal(t, 250, cfg.Extraction.MinUsefulChars, "env overrides yaml")
	assert.Equal(t, "local", cfg.Embeddings.Provider)
	// Untouched fields keep defaults.
	assert.Equal(t, 5, cfg.Extraction.TopK)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Extraction, cfg.Extraction)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  overlap_threshold: 2.0\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
