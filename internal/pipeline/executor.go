package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/contextmap"
	"github.com/fyrsmithlabs/crewd/internal/loader"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

// ErrEmptyOutput is returned when a runner produces no document.
var ErrEmptyOutput = errors.New("stage produced empty output")

// RunInput is what a stage runner receives: the project aggregate and the
// formatted context bundle for its role.
type RunInput struct {
	Project *project.Context
	Context string
}

// Runner performs the actual stage work and returns the produced document.
// The pipeline is agnostic to what sits behind it: a model call, a human at
// an editor, or a canned fixture in tests.
type Runner interface {
	Run(ctx context.Context, stage Stage, in RunInput) (string, error)
}

// Executor drives stages through the load/run/persist/advance cycle.
type Executor struct {
	loader      *loader.Loader
	indexer     *loader.Indexer // nil disables indexing
	machine     *project.Machine
	store       *project.Store
	artifactDir string
	logger      *zap.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	stageCounter metric.Int64Counter
}

// NewExecutor creates a stage executor. The indexer is optional.
func NewExecutor(ld *loader.Loader, ix *loader.Indexer, machine *project.Machine, store *project.Store, artifactDir string, logger *zap.Logger) (*Executor, error) {
	if ld == nil {
		return nil, errors.New("loader is required")
	}
	if store == nil {
		return nil, errors.New("project store is required")
	}
	if machine == nil {
		machine = NewMachine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if artifactDir == "" {
		artifactDir = "."
	}

	e := &Executor{
		loader:      ld,
		indexer:     ix,
		machine:     machine,
		store:       store,
		artifactDir: artifactDir,
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		meter:       otel.Meter(instrumentationName),
	}

	var err error
	e.stageCounter, err = e.meter.Int64Counter(
		"crewd.pipeline.stages_total",
		metric.WithDescription("Stage executions completed"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		e.logger.Warn("failed to create stage counter", zap.Error(err))
	}

	return e, nil
}

// RunStage executes one stage. A stage whose completion the project has
// already reached is a no-op, reported via the bool: re-running a finished
// pipeline does nothing, which is what makes crash recovery a plain re-run.
// Missing upstream artifacts abort before the runner is invoked.
func (e *Executor) RunStage(ctx context.Context, proj *project.Context, stage Stage, runner Runner) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline.stage")
	defer span.End()

	span.SetAttributes(
		attribute.String("project_id", proj.ProjectID),
		attribute.String("stage", stage.Code),
	)

	target := project.StageComplete(stage.Code)
	if e.machine.Reached(proj, target) {
		e.logger.Debug("stage already complete, skipping",
			zap.String("project_id", proj.ProjectID),
			zap.String("stage", stage.Code))
		return false, nil
	}

	bundle, err := e.loader.Load(ctx, proj, stage.Consumer, stage.Requires)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("loading context for %s: %w", stage.Code, err)
	}
	if err := bundle.Require(stage.Requires...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("stage %s: %w", stage.Code, err)
	}

	output, err := runner.Run(ctx, stage, RunInput{
		Project: proj,
		Context: bundle.Format(contextmap.Labels),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("running stage %s: %w", stage.Code, err)
	}
	if strings.TrimSpace(output) == "" {
		return false, fmt.Errorf("stage %s: %w", stage.Code, ErrEmptyOutput)
	}

	path, err := e.writeArtifact(proj.ProjectID, stage.Code, output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	if _, err := proj.AppendArtifact(artifactRecord(stage, path)); err != nil {
		span.RecordError(err)
		return false, err
	}

	if e.indexer != nil {
		art, _ := proj.Artifacts.Latest(stage.Code)
		if _, err := e.indexer.IndexArtifact(ctx, proj.ProjectID, art); err != nil {
			// The semantic tier degrades gracefully without the index, so
			// indexing failure never fails the stage.
			e.logger.Warn("failed to index stage artifact",
				zap.String("project_id", proj.ProjectID),
				zap.String("stage", stage.Code),
				zap.Error(err))
		}
	}

	if err := e.machine.Advance(proj, target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	if err := e.store.Save(proj); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("persisting stage completion: %w", err)
	}

	if e.stageCounter != nil {
		e.stageCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage.Code)))
	}
	e.logger.Info("stage complete",
		zap.String("project_id", proj.ProjectID),
		zap.String("stage", stage.Code),
		zap.String("artifact", path))

	return true, nil
}

// RunTrack runs every pending stage of a crew's track in order. Returns the
// number of stages that actually ran.
func (e *Executor) RunTrack(ctx context.Context, proj *project.Context, crew project.Crew, runner Runner) (int, error) {
	ran := 0
	for _, stage := range TrackFor(crew) {
		ok, err := e.RunStage(ctx, proj, stage, runner)
		if err != nil {
			return ran, err
		}
		if ok {
			ran++
		}
	}
	return ran, nil
}

// Complete marks the project finished after its final stage.
func (e *Executor) Complete(ctx context.Context, proj *project.Context) error {
	_, span := e.tracer.Start(ctx, "pipeline.complete")
	defer span.End()

	if err := e.machine.Advance(proj, project.StatusComplete); err != nil {
		span.RecordError(err)
		return err
	}
	proj.LogEvent("PROJECT_COMPLETE", "")
	if err := e.store.Save(proj); err != nil {
		return fmt.Errorf("persisting completion: %w", err)
	}
	e.logger.Info("project complete", zap.String("project_id", proj.ProjectID))
	return nil
}

func artifactRecord(stage Stage, path string) artifact.Artifact {
	return artifact.Artifact{
		Type:      stage.Code,
		Name:      stage.Name,
		Path:      path,
		CreatedBy: stage.Consumer,
	}
}

func (e *Executor) writeArtifact(projectID, code, content string) (string, error) {
	dir := filepath.Join(e.artifactDir, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifact dir: %w", err)
	}
	path := filepath.Join(dir, strings.ToLower(code)+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s artifact: %w", code, err)
	}
	return path, nil
}
