package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/approval"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

const instrumentationName = "github.com/fyrsmithlabs/crewd/internal/handoff"

// Service errors.
var (
	ErrGateRequired  = errors.New("approval gate is required")
	ErrStoreRequired = errors.New("project store is required")
)

// Config configures the handoff service.
type Config struct {
	// Dir is where handoff package documents are written.
	Dir string
}

// Result is the outcome of one handoff execution.
type Result struct {
	// HandoffID identifies the executed package.
	HandoffID string

	// Approved reports the checkpoint verdict.
	Approved bool

	// Reason carries the rejection guidance when not approved.
	Reason string

	// Status is the project status after execution.
	Status project.Status

	// AlreadyExecuted is true when a prior run approved this handoff and
	// this call changed nothing.
	AlreadyExecuted bool
}

// Service executes handoffs: validate, persist the package, run the human
// gate, then apply the phase transition. Validation failures abort before
// any side effect so a rejected package leaves no trace.
type Service struct {
	config  Config
	gate    *approval.Gate
	store   *project.Store
	machine *project.Machine
	logger  *zap.Logger

	tracer          trace.Tracer
	meter           metric.Meter
	executedCounter metric.Int64Counter
}

// NewService creates the handoff service.
func NewService(cfg Config, gate *approval.Gate, store *project.Store, machine *project.Machine, logger *zap.Logger) (*Service, error) {
	if gate == nil {
		return nil, ErrGateRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if machine == nil {
		machine = project.NewMachine(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}

	s := &Service{
		config:  cfg,
		gate:    gate,
		store:   store,
		machine: machine,
		logger:  logger,
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
	}

	var err error
	s.executedCounter, err = s.meter.Int64Counter(
		"crewd.handoff.executions_total",
		metric.WithDescription("Handoff executions by outcome"),
		metric.WithUnit("{handoff}"),
	)
	if err != nil {
		s.logger.Warn("failed to create execution counter", zap.Error(err))
	}

	return s, nil
}

// Execute runs the full transfer workflow for a package. An invalid package
// returns the aggregated validation error with no side effects. A package
// this project already approved is a no-op, which makes crash recovery a
// plain re-run.
func (s *Service) Execute(ctx context.Context, proj *project.Context, pkg *Package) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "handoff.execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("project_id", proj.ProjectID),
		attribute.String("handoff_id", pkg.HandoffID),
	)

	approvedStatus := project.ActivePhase2(pkg.ReceivingCrew)
	for _, rec := range proj.Handoffs {
		if rec.HandoffID == pkg.HandoffID && rec.Status == string(approvedStatus) {
			s.logger.Info("handoff already approved, skipping",
				zap.String("project_id", proj.ProjectID),
				zap.String("handoff_id", pkg.HandoffID))
			return &Result{
				HandoffID:       pkg.HandoffID,
				Approved:        true,
				Status:          proj.Status,
				AlreadyExecuted: true,
			}, nil
		}
	}

	if err := pkg.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	path, err := s.writePackage(pkg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	proj.LogEvent("HANDOFF_PACKAGE_WRITTEN", path)

	decision, err := s.gate.Request(ctx, proj, pkg.HandoffID, pkg.Prompt())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("handoff checkpoint: %w", err)
	}

	now := time.Now().UTC()
	result := &Result{HandoffID: pkg.HandoffID, Approved: decision.Approved, Reason: decision.Reason}

	if decision.Approved {
		if err := s.machine.BeginPhase2(proj, pkg.ReceivingCrew); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("starting phase 2: %w", err)
		}
		proj.AppendHandoff(project.HandoffRecord{
			HandoffID: pkg.HandoffID,
			Status:    string(approvedStatus),
			Path:      path,
			DecidedAt: &now,
		})
		proj.LogEvent("HANDOFF_APPROVED", pkg.HandoffID)
	} else {
		s.machine.Return(proj, pkg.DeliveringCrew, decision.Reason)
		proj.AppendHandoff(project.HandoffRecord{
			HandoffID: pkg.HandoffID,
			Status:    string(project.ReturnedTo(pkg.DeliveringCrew)),
			Path:      path,
			Reason:    decision.Reason,
			DecidedAt: &now,
		})
		proj.LogEvent("HANDOFF_REJECTED", pkg.HandoffID+": "+decision.Reason)
	}
	result.Status = proj.Status

	if err := s.store.Save(proj); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("persisting handoff outcome: %w", err)
	}

	if s.executedCounter != nil {
		s.executedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("approved", decision.Approved),
		))
	}
	s.logger.Info("handoff executed",
		zap.String("project_id", proj.ProjectID),
		zap.String("handoff_id", pkg.HandoffID),
		zap.Bool("approved", decision.Approved),
		zap.String("status", string(proj.Status)))

	return result, nil
}

// writePackage persists the package document atomically.
func (s *Service) writePackage(pkg *Package) (string, error) {
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating handoff dir: %w", err)
	}

	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding handoff package: %w", err)
	}

	path := filepath.Join(s.config.Dir, pkg.HandoffID+".json")
	tmp, err := os.CreateTemp(s.config.Dir, "."+pkg.HandoffID+"-*")
	if err != nil {
		return "", fmt.Errorf("creating temp package file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing handoff package: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing handoff package: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("publishing handoff package: %w", err)
	}
	return path, nil
}
