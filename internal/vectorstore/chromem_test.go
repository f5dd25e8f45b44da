package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewd/internal/embeddings"
)

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(
		ChromemConfig{Path: t.TempDir()},
		embeddings.NewLocalProvider(0),
		nil,
	)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewChromemStore_RequiresEmbedder(t *testing.T) {
	_, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []Document{
		{
			ID:      "PROJ-1_BIR_chunk_0",
			Content: "The database schema has three tables: trips, users, facilities.",
			Metadata: map[string]string{
				"project_id":    "PROJ-1",
				"artifact_type": "BIR",
			},
		},
		{
			ID:      "PROJ-1_BIR_chunk_1",
			Content: "Frontend bundle uses code splitting and lazy loading for routes.",
			Metadata: map[string]string{
				"project_id":    "PROJ-1",
				"artifact_type": "BIR",
			},
		},
	}

	ids, err := store.AddDocuments(ctx, "project_PROJ-1", docs)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	results, err := store.Search(ctx, "project_PROJ-1", "database schema tables", 5, map[string]string{
		"artifact_type": "BIR",
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "PROJ-1_BIR_chunk_0", results[0].ID)
}

func TestChromemStore_SearchMissingCollection(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "project_NOPE", "anything", 5, nil)
	require.NoError(t, err, "missing collection is empty, not an error")
	assert.Empty(t, results)
}

func TestChromemStore_FilterScoping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, "project_PROJ-1", []Document{
		{
			ID:       "PROJ-1_TAD_chunk_0",
			Content:  "Authentication uses signed session tokens.",
			Metadata: map[string]string{"project_id": "PROJ-1", "artifact_type": "TAD"},
		},
		{
			ID:       "PROJ-1_BIR_chunk_0",
			Content:  "Authentication middleware validates session tokens.",
			Metadata: map[string]string{"project_id": "PROJ-1", "artifact_type": "BIR"},
		},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "project_PROJ-1", "authentication tokens", 5, map[string]string{
		"artifact_type": "TAD",
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "TAD", r.Metadata["artifact_type"])
	}
}

func TestChromemStore_GetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, "project_PROJ-1", []Document{
		{
			ID:       "PROJ-1_BIR_chunk_0",
			Content:  "chunk content",
			Metadata: map[string]string{"file_hash": "abc123"},
		},
	})
	require.NoError(t, err)

	doc, ok, err := store.GetDocument(ctx, "project_PROJ-1", "PROJ-1_BIR_chunk_0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", doc.Metadata["file_hash"])

	_, ok, err = store.GetDocument(ctx, "project_PROJ-1", "PROJ-1_BIR_chunk_999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChromemStore_DeleteByFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, "project_PROJ-1", []Document{
		{ID: "a", Content: "alpha content one", Metadata: map[string]string{"artifact_type": "BIR"}},
		{ID: "b", Content: "bravo content two", Metadata: map[string]string{"artifact_type": "TAD"}},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocuments(ctx, "project_PROJ-1", map[string]string{"artifact_type": "BIR"}))

	_, ok, err := store.GetDocument(ctx, "project_PROJ-1", "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.GetDocument(ctx, "project_PROJ-1", "b")
	require.NoError(t, err)
	assert.True(t, ok)
}
