package config

import (
	"fmt"

	"github.com/fyrsmithlabs/crewd/internal/logging"
)

// Config is the root configuration for crewd.
type Config struct {
	Logging    logging.Config   `koanf:"logging"`
	Storage    StorageConfig    `koanf:"storage"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Vector     VectorConfig     `koanf:"vector"`
	Notify     NotifyConfig     `koanf:"notify"`
}

// StorageConfig locates the persistent state on disk.
type StorageConfig struct {
	// StateDir holds one JSON context document per project.
	StateDir string `koanf:"state_dir"`

	// ArtifactDir is the root for produced documents.
	ArtifactDir string `koanf:"artifact_dir"`

	// HandoffDir is where handoff packages are written.
	HandoffDir string `koanf:"handoff_dir"`

	// ContextMapPath optionally overrides the built-in context map.
	ContextMapPath string `koanf:"context_map_path"`
}

// ExtractionConfig tunes the three-tier context cascade. The thresholds are
// tunable configuration, not load-bearing precision.
type ExtractionConfig struct {
	// MaxCharsPerArtifact is the character budget per extracted artifact.
	MaxCharsPerArtifact int `koanf:"max_chars_per_artifact"`

	// MinUsefulChars is the tier acceptance threshold: a tier's output below
	// this length triggers the next fallback.
	MinUsefulChars int `koanf:"min_useful_chars"`

	// OverlapThreshold is the token-overlap fraction a fuzzy heading match
	// must exceed.
	OverlapThreshold float64 `koanf:"overlap_threshold"`

	// ChunkSize and ChunkOverlap control semantic-index chunking.
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`

	// TopK is the number of chunks a semantic query returns.
	TopK int `koanf:"top_k"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "local" (deterministic, for tests/offline).
	Provider string `koanf:"provider"`

	// BaseURL is the Ollama endpoint.
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model name.
	Model string `koanf:"model"`
}

// VectorConfig configures the embedded semantic index.
type VectorConfig struct {
	// Path is the chromem persistence directory.
	Path string `koanf:"path"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`
}

// NotifyConfig configures the human notification channel.
type NotifyConfig struct {
	// WebhookURL is the primary notification endpoint. Empty disables it;
	// the log fallback always runs.
	WebhookURL string `koanf:"webhook_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Storage: StorageConfig{
			StateDir:    "~/.local/share/crewd/projects",
			ArtifactDir: "~/.local/share/crewd/artifacts",
			HandoffDir:  "~/.local/share/crewd/handoffs",
		},
		Extraction: ExtractionConfig{
			MaxCharsPerArtifact: 6000,
			MinUsefulChars:      500,
			OverlapThreshold:    0.5,
			ChunkSize:           1500,
			ChunkOverlap:        200,
			TopK:                5,
		},
		Embeddings: EmbeddingsConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		Vector: VectorConfig{
			Path: "~/.local/share/crewd/vectorstore",
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Storage.StateDir == "" {
		return fmt.Errorf("storage.state_dir is required")
	}
	if c.Extraction.MaxCharsPerArtifact <= 0 {
		return fmt.Errorf("extraction.max_chars_per_artifact must be positive")
	}
	if c.Extraction.MinUsefulChars < 0 {
		return fmt.Errorf("extraction.min_useful_chars cannot be negative")
	}
	if c.Extraction.OverlapThreshold <= 0 || c.Extraction.OverlapThreshold >= 1 {
		return fmt.Errorf("extraction.overlap_threshold must be in (0, 1)")
	}
	if c.Extraction.ChunkSize <= 0 {
		return fmt.Errorf("extraction.chunk_size must be positive")
	}
	if c.Extraction.ChunkOverlap >= c.Extraction.ChunkSize {
		return fmt.Errorf("extraction.chunk_overlap must be smaller than chunk_size")
	}
	if c.Extraction.TopK <= 0 {
		return fmt.Errorf("extraction.top_k must be positive")
	}
	switch c.Embeddings.Provider {
	case "ollama", "local":
	default:
		return fmt.Errorf("embeddings.provider must be ollama or local, got %q", c.Embeddings.Provider)
	}
	return nil
}
