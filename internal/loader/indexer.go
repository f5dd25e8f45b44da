package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/config"
	"github.com/fyrsmithlabs/crewd/internal/project"
	"github.com/fyrsmithlabs/crewd/internal/vectorstore"
)

// ErrNoVectorStore is returned when indexing is requested without a
// configured vector store.
var ErrNoVectorStore = errors.New("no vector store configured")

// Indexer maintains the per-project semantic index. Documents are chunked
// and stored under deterministic IDs so re-indexing is idempotent: an
// unchanged file is detected by content hash and skipped, a changed file
// replaces all of its previous chunks.
type Indexer struct {
	store  vectorstore.Store
	config config.ExtractionConfig
	logger *zap.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	chunkCounter metric.Int64Counter
}

// NewIndexer creates an indexer over the given store.
func NewIndexer(store vectorstore.Store, cfg config.ExtractionConfig, logger *zap.Logger) (*Indexer, error) {
	if store == nil {
		return nil, ErrNoVectorStore
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ix := &Indexer{
		store:  store,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	var err error
	ix.chunkCounter, err = ix.meter.Int64Counter(
		"crewd.index.chunks_total",
		metric.WithDescription("Total number of chunks written to the semantic index"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		ix.logger.Warn("failed to create chunk counter", zap.Error(err))
	}

	return ix, nil
}

// IndexArtifact chunks and indexes one artifact's document into the
// project's collection. Returns the number of chunks written; zero with a
// nil error means the stored index already matches the file content.
func (ix *Indexer) IndexArtifact(ctx context.Context, projectID string, art artifact.Artifact) (int, error) {
	ctx, span := ix.tracer.Start(ctx, "index.artifact")
	defer span.End()

	span.SetAttributes(
		attribute.String("project_id", projectID),
		attribute.String("artifact_type", art.Type),
	)

	content, err := os.ReadFile(art.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("reading artifact %s: %w", art.Path, err)
	}

	hash := contentHash(content)

	// Revisions are indexed under their base code so a semantic query for
	// "BIR" is served by the latest "BIR_R" content, and re-indexing a
	// revision replaces the superseded base chunks.
	baseType := artifact.BaseType(art.Type)

	// The first chunk's ID is stable, so its stored hash stands in for the
	// whole document.
	probe := chunkID(projectID, baseType, 0)
	if doc, ok, err := ix.store.GetDocument(ctx, projectID, probe); err == nil && ok {
		if doc.Metadata["file_hash"] == hash {
			ix.logger.Debug("artifact unchanged, skipping index",
				zap.String("project_id", projectID),
				zap.String("artifact_type", art.Type))
			return 0, nil
		}
	}

	// Content changed: drop every chunk of the previous version first so a
	// shorter document leaves no stale tail chunks behind.
	if err := ix.store.DeleteDocuments(ctx, projectID, map[string]string{
		"artifact_type": baseType,
	}); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("clearing stale chunks for %s: %w", art.Type, err)
	}

	chunks := splitChunks(string(content), ix.config.ChunkSize, ix.config.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]vectorstore.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Document{
			ID:      chunkID(projectID, baseType, i),
			Content: chunk,
			Metadata: map[string]string{
				"project_id":    projectID,
				"artifact_type": baseType,
				"file_hash":     hash,
				"chunk_index":   strconv.Itoa(i),
			},
		}
	}

	if _, err := ix.store.AddDocuments(ctx, projectID, docs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("indexing %s: %w", art.Type, err)
	}

	if ix.chunkCounter != nil {
		ix.chunkCounter.Add(ctx, int64(len(docs)),
			metric.WithAttributes(attribute.String("artifact_type", art.Type)))
	}
	ix.logger.Info("indexed artifact",
		zap.String("project_id", projectID),
		zap.String("artifact_type", art.Type),
		zap.Int("chunks", len(docs)))

	return len(docs), nil
}

// IndexProject indexes every artifact in the project whose file is still on
// disk. Returns the total number of chunks written.
func (ix *Indexer) IndexProject(ctx context.Context, proj *project.Context) (int, error) {
	ctx, span := ix.tracer.Start(ctx, "index.project")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", proj.ProjectID))

	total := 0
	for _, art := range proj.Artifacts {
		if !art.Exists() {
			ix.logger.Warn("artifact file missing, skipping",
				zap.String("project_id", proj.ProjectID),
				zap.String("artifact_type", art.Type),
				zap.String("path", art.Path))
			continue
		}
		n, err := ix.IndexArtifact(ctx, proj.ProjectID, art)
		if err != nil {
			span.RecordError(err)
			return total, err
		}
		total += n
	}
	return total, nil
}

func chunkID(projectID, artifactType string, i int) string {
	return fmt.Sprintf("%s_%s_chunk_%d", projectID, artifactType, i)
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
