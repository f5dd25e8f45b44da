package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/embeddings"
)

// ChromemConfig holds configuration for the chromem-go embedded store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.local/share/crewd/vectorstore"
	}
}

// ChromemStore implements Store using chromem-go.
//
// chromem-go is an embeddable pure-Go vector database with persistence to
// disk, so the semantic index needs no external service. Concurrent readers
// from different projects hit different collections; the lock only guards
// collection creation.
type ChromemStore struct {
	db       *chromem.DB
	embedder embeddings.Provider
	config   ChromemConfig
	logger   *zap.Logger

	mu sync.Mutex
}

// NewChromemStore creates a store with the given configuration.
func NewChromemStore(config ChromemConfig, embedder embeddings.Provider, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	logger.Info("semantic index initialized",
		zap.String("path", path),
		zap.Bool("compress", config.Compress),
	)

	return &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// embeddingFunc bridges the Provider to chromem's per-text callback.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

func (s *ChromemStore) collection(name string, create bool) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if create {
		col, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
		if err != nil {
			return nil, fmt.Errorf("creating collection %s: %w", name, err)
		}
		return col, nil
	}

	col := s.db.GetCollection(name, s.embeddingFunc())
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return col, nil
}

// AddDocuments embeds and stores documents, creating the collection if needed.
func (s *ChromemStore) AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	col, err := s.collection(collection, true)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: vectors[i],
		}
		ids[i] = d.ID
	}

	// Concurrency of 1 since embeddings are already computed.
	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return nil, fmt.Errorf("adding documents to %s: %w", collection, err)
	}

	s.logger.Debug("documents indexed",
		zap.String("collection", collection),
		zap.Int("count", len(docs)),
	)
	return ids, nil
}

// Search performs similarity search. A missing collection yields no results.
func (s *ChromemStore) Search(ctx context.Context, collection, query string, k int, filters map[string]string) ([]SearchResult, error) {
	col, err := s.collection(collection, false)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// chromem rejects nResults greater than the (filtered) document count.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := col.Query(ctx, query, k, filters, nil)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Score:    r.Similarity,
			Metadata: r.Metadata,
		}
	}
	return out, nil
}

// GetDocument fetches a stored document by ID.
func (s *ChromemStore) GetDocument(ctx context.Context, collection, id string) (*Document, bool, error) {
	col, err := s.collection(collection, false)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	doc, err := col.GetByID(ctx, id)
	if err != nil {
		// chromem reports absence as an error; treat it as not-found.
		return nil, false, nil
	}

	return &Document{
		ID:       doc.ID,
		Content:  doc.Content,
		Metadata: doc.Metadata,
	}, true, nil
}

// DeleteDocuments removes all documents matching the metadata filters.
func (s *ChromemStore) DeleteDocuments(ctx context.Context, collection string, filters map[string]string) error {
	col, err := s.collection(collection, false)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil
		}
		return err
	}

	if err := col.Delete(ctx, filters, nil); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

// Close releases resources held by the store.
func (s *ChromemStore) Close() error {
	return nil
}
