package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// localDimension keeps local vectors small; similarity quality only has to
// be good enough for tests and offline runs.
const localDimension = 128

// LocalProvider is a deterministic, dependency-free embedder. It hashes
// word tokens into a fixed-size frequency vector and L2-normalizes it, so
// documents sharing vocabulary score close under cosine similarity. Useful
// for tests and for running without an Ollama endpoint.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local provider; dimension 0 selects the default.
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = localDimension
	}
	return &LocalProvider{dimension: dimension}
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *LocalProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = p.vectorize(t)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *LocalProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	return p.vectorize(text), nil
}

// Dimension returns the embedding dimension.
func (p *LocalProvider) Dimension() int {
	return p.dimension
}

// Close releases resources held by the provider.
func (p *LocalProvider) Close() error {
	return nil
}

func (p *LocalProvider) vectorize(text string) []float32 {
	vec := make([]float32, p.dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,;:!?()[]{}\"'")))
		vec[h.Sum32()%uint32(p.dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}
