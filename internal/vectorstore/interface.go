// Package vectorstore defines the interface for the semantic index backing
// tier-2 context extraction.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")
)

// Document is one indexed chunk. IDs are deterministic per (project,
// artifact type, chunk index) so re-indexing an unchanged document is a
// no-op rather than a duplicate.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the text content of the chunk.
	Content string

	// Metadata carries filter keys. Every entry is scoped by project_id and
	// artifact_type so concurrent projects never cross-contaminate.
	Metadata map[string]string
}

// SearchResult is one similarity hit.
type SearchResult struct {
	// ID is the document identifier.
	ID string

	// Content is the chunk text.
	Content string

	// Score is the similarity score (higher is more similar).
	Score float32

	// Metadata contains the document metadata.
	Metadata map[string]string
}

// Store is the interface for semantic index operations. Collections are
// namespaces, one per project.
type Store interface {
	// AddDocuments embeds and stores documents in a collection, creating the
	// collection if needed. Returns the stored IDs.
	AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error)

	// Search performs similarity search in a collection. Filters apply to
	// document metadata; only documents matching all conditions are returned.
	// A missing collection yields no results, not an error.
	Search(ctx context.Context, collection, query string, k int, filters map[string]string) ([]SearchResult, error)

	// GetDocument fetches a stored document by ID. Absence is reported via
	// the bool, not an error.
	GetDocument(ctx context.Context, collection, id string) (*Document, bool, error)

	// DeleteDocuments removes all documents in a collection matching the
	// metadata filters.
	DeleteDocuments(ctx context.Context, collection string, filters map[string]string) error

	// Close releases resources held by the store.
	Close() error
}
