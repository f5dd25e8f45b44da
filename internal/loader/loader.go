// Package loader assembles the working context a pipeline stage receives.
// For each upstream artifact it runs a three-tier cascade: structured
// section extraction, then scoped semantic search, then a raw prefix of the
// document. Each tier's output is accepted only when it is long enough to
// be useful; the tier that produced an extract is recorded so degraded
// context is visible downstream.
package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/config"
	"github.com/fyrsmithlabs/crewd/internal/contextmap"
	"github.com/fyrsmithlabs/crewd/internal/project"
	"github.com/fyrsmithlabs/crewd/internal/section"
	"github.com/fyrsmithlabs/crewd/internal/vectorstore"
)

const instrumentationName = "github.com/fyrsmithlabs/crewd/internal/loader"

// Loader runs the context cascade for stage consumers.
type Loader struct {
	cmap   *contextmap.Map
	store  vectorstore.Store // nil disables the semantic tier
	config config.ExtractionConfig
	logger *zap.Logger

	tracer          trace.Tracer
	meter           metric.Meter
	loadCounter     metric.Int64Counter
	fallbackCounter metric.Int64Counter
}

// New creates a Loader. The vector store is optional: without one the
// cascade goes straight from section extraction to the raw fallback.
func New(cmap *contextmap.Map, store vectorstore.Store, cfg config.ExtractionConfig, logger *zap.Logger) *Loader {
	if cmap == nil {
		cmap = contextmap.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Loader{
		cmap:   cmap,
		store:  store,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	l.initMetrics()
	return l
}

func (l *Loader) initMetrics() {
	var err error

	l.loadCounter, err = l.meter.Int64Counter(
		"crewd.loader.extracts_total",
		metric.WithDescription("Context extracts served, by tier"),
		metric.WithUnit("{extract}"),
	)
	if err != nil {
		l.logger.Warn("failed to create load counter", zap.Error(err))
	}

	l.fallbackCounter, err = l.meter.Int64Counter(
		"crewd.loader.fallbacks_total",
		metric.WithDescription("Cascade steps past the section tier"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		l.logger.Warn("failed to create fallback counter", zap.Error(err))
	}
}

// Load builds the context bundle for one consumer from the project's latest
// artifacts of the given types. Types with no on-disk artifact are simply
// absent from the bundle; callers gate on Require. Types are keyed by their
// base code, so a "BIR" request resolves a "BIR_R" revision.
func (l *Loader) Load(ctx context.Context, proj *project.Context, consumer string, types []string) (*Bundle, error) {
	ctx, span := l.tracer.Start(ctx, "loader.load")
	defer span.End()

	span.SetAttributes(
		attribute.String("project_id", proj.ProjectID),
		attribute.String("consumer", consumer),
		attribute.Int("requested_types", len(types)),
	)

	bundle := newBundle()
	for _, t := range types {
		path, ok := proj.Artifacts.LatestPath(t)
		if !ok {
			l.logger.Debug("no artifact for type",
				zap.String("project_id", proj.ProjectID),
				zap.String("artifact_type", t))
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("reading %s artifact %s: %w", t, path, err)
		}

		ext := l.extract(ctx, proj.ProjectID, consumer, t, string(content))
		bundle.add(ext)

		if l.loadCounter != nil {
			l.loadCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("artifact_type", t),
				attribute.String("tier", string(ext.Tier)),
			))
		}
	}

	return bundle, nil
}

// extract runs the cascade for one document.
func (l *Loader) extract(ctx context.Context, projectID, consumer, artifactType, content string) Extract {
	wanted := l.cmap.Sections(consumer, artifactType)

	if len(wanted) > 0 {
		text := section.Extract(content, wanted, l.config.MaxCharsPerArtifact, l.config.OverlapThreshold)
		if len(text) >= l.config.MinUsefulChars {
			return Extract{
				Type:      artifactType,
				Text:      text,
				Tier:      TierSection,
				Truncated: strings.Contains(text, section.TruncationMarker),
			}
		}
		l.countFallback(ctx, artifactType, TierSection)
	}

	if l.store != nil && len(wanted) > 0 {
		if text, ok := l.semantic(ctx, projectID, artifactType, wanted); ok {
			return Extract{Type: artifactType, Text: text, Tier: TierSemantic}
		}
		l.countFallback(ctx, artifactType, TierSemantic)
	}

	text := content
	truncated := false
	if l.config.MaxCharsPerArtifact > 0 && len(text) > l.config.MaxCharsPerArtifact {
		text = section.Cut(text, l.config.MaxCharsPerArtifact) + "\n" + section.TruncationMarker
		truncated = true
	}
	l.logger.Warn("serving raw document prefix",
		zap.String("project_id", projectID),
		zap.String("consumer", consumer),
		zap.String("artifact_type", artifactType),
		zap.Bool("truncated", truncated))
	return Extract{Type: artifactType, Text: text, Tier: TierRaw, Truncated: truncated}
}

// semantic queries the project's index for the wanted sections, scoped to
// one artifact type. Store errors degrade to the next tier rather than
// failing the load.
func (l *Loader) semantic(ctx context.Context, projectID, artifactType string, wanted []string) (string, bool) {
	query := strings.Join(wanted, ", ")
	results, err := l.store.Search(ctx, projectID, query, l.config.TopK, map[string]string{
		"artifact_type": artifactType,
	})
	if err != nil {
		l.logger.Warn("semantic search failed, falling back",
			zap.String("project_id", projectID),
			zap.String("artifact_type", artifactType),
			zap.Error(err))
		return "", false
	}

	var parts []string
	total := 0
	for _, r := range results {
		if l.config.MaxCharsPerArtifact > 0 && total+len(r.Content) > l.config.MaxCharsPerArtifact {
			break
		}
		parts = append(parts, r.Content)
		total += len(r.Content)
	}

	text := strings.Join(parts, "\n\n")
	if len(text) < l.config.MinUsefulChars {
		return "", false
	}
	return text, true
}

func (l *Loader) countFallback(ctx context.Context, artifactType string, from Tier) {
	if l.fallbackCounter == nil {
		return
	}
	l.fallbackCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("artifact_type", artifactType),
		attribute.String("from_tier", string(from)),
	))
}
