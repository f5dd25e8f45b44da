package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/approval"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

const instrumentationName = "github.com/fyrsmithlabs/crewd/internal/pipeline"

// Service errors.
var (
	ErrTriageRejected = errors.New("triage checkpoint rejected")
	ErrRoutingFailed  = errors.New("routing failed")
)

// Service runs intake: classification, the triage checkpoint, and routing.
type Service struct {
	classifier Classifier
	gate       *approval.Gate
	store      *project.Store
	machine    *project.Machine
	logger     *zap.Logger

	tracer        trace.Tracer
	meter         metric.Meter
	triageCounter metric.Int64Counter
}

// NewService creates the intake service.
func NewService(classifier Classifier, gate *approval.Gate, store *project.Store, machine *project.Machine, logger *zap.Logger) (*Service, error) {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if gate == nil {
		return nil, errors.New("approval gate is required")
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

	s := &Service{
		classifier: classifier,
		gate:       gate,
		store:      store,
		machine:    machine,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
		meter:      otel.Meter(instrumentationName),
	}

	var err error
	s.triageCounter, err = s.meter.Int64Counter(
		"crewd.pipeline.triages_total",
		metric.WithDescription("Triage runs by outcome"),
		metric.WithUnit("{triage}"),
	)
	if err != nil {
		s.logger.Warn("failed to create triage counter", zap.Error(err))
	}

	return s, nil
}

// Triage takes a raw request through classification, the human triage
// checkpoint, and routing. The returned project is persisted at every step;
// a rejected triage returns the project alongside ErrTriageRejected so the
// rejection record survives.
func (s *Service) Triage(ctx context.Context, request string) (*project.Context, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.triage")
	defer span.End()

	classification, spec, err := s.classifier.Classify(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("classifying request: %w", err)
	}

	proj, err := project.New(request, classification)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	proj.Spec = spec
	proj.HandoffDirection = spec.HandoffDirection
	proj.LogEvent("PROJECT_INITIATED", string(classification))
	span.SetAttributes(
		attribute.String("project_id", proj.ProjectID),
		attribute.String("classification", string(classification)),
	)

	if err := s.store.Save(proj); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("persisting new project: %w", err)
	}

	decision, err := s.gate.Request(ctx, proj, "TRIAGE", triageSummary(proj))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return proj, fmt.Errorf("triage checkpoint: %w", err)
	}
	if !decision.Approved {
		s.countTriage(ctx, "rejected")
		proj.LogEvent("TRIAGE_REJECTED", decision.Reason)
		if err := s.store.Save(proj); err != nil {
			return proj, fmt.Errorf("persisting triage rejection: %w", err)
		}
		return proj, fmt.Errorf("%w: %s", ErrTriageRejected, decision.Reason)
	}

	if err := s.machine.Advance(proj, project.StatusClassified); err != nil {
		span.RecordError(err)
		return proj, err
	}
	if err := s.store.Save(proj); err != nil {
		return proj, fmt.Errorf("persisting classification: %w", err)
	}

	if err := s.Route(ctx, proj); err != nil {
		return proj, err
	}
	s.countTriage(ctx, "routed")
	return proj, nil
}

// Route assigns the crew and advances the project out of CLASSIFIED. A
// context the machine cannot route is marked ROUTING_FAILED and the failure
// is returned.
func (s *Service) Route(ctx context.Context, proj *project.Context) error {
	ctx, span := s.tracer.Start(ctx, "pipeline.route")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", proj.ProjectID))

	var target project.Status
	switch proj.Classification {
	case project.ClassificationDev:
		proj.AssignedCrew = "development"
		proj.CrewLead = "senior_dev"
		proj.NextAction = "begin " + DevStages()[0].Name
		target = project.StatusRoutedToDev

	case project.ClassificationDS:
		proj.AssignedCrew = "data_science"
		proj.CrewLead = "ds_lead"
		proj.NextAction = "begin " + DSStages()[0].Name
		target = project.StatusRoutedToDS

	case project.ClassificationJoint:
		switch proj.HandoffDirection {
		case project.DirectionDSToDev:
			proj.Phase1Crew = project.CrewDS
			proj.Phase2Crew = project.CrewDev
			proj.AssignedCrew = "data_science"
			proj.CrewLead = "ds_lead"
			proj.NextAction = "run data science track, then hand off to development"
			target = project.StatusRoutedToDSPhase1
		case project.DirectionDevToDS:
			proj.Phase1Crew = project.CrewDev
			proj.Phase2Crew = project.CrewDS
			proj.AssignedCrew = "development"
			proj.CrewLead = "senior_dev"
			proj.NextAction = "run development track, then hand off to data science"
			target = project.StatusRoutedToDevPhase1
		default:
			proj.HandoffDirection = project.DirectionBidirectional
			proj.NextAction = "manual coordination required"
			target = project.StatusRoutedBidirectional
		}

	default:
		if err := s.machine.Advance(proj, project.StatusRoutingFailed); err != nil {
			span.RecordError(err)
			return err
		}
		if err := s.store.Save(proj); err != nil {
			return fmt.Errorf("persisting routing failure: %w", err)
		}
		return fmt.Errorf("%w: unknown classification %q", ErrRoutingFailed, proj.Classification)
	}

	if err := s.machine.Advance(proj, target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.store.Save(proj); err != nil {
		return fmt.Errorf("persisting routing: %w", err)
	}

	s.logger.Info("project routed",
		zap.String("project_id", proj.ProjectID),
		zap.String("status", string(proj.Status)),
		zap.String("crew_lead", proj.CrewLead))
	return nil
}

func (s *Service) countTriage(ctx context.Context, outcome string) {
	if s.triageCounter == nil {
		return
	}
	s.triageCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func triageSummary(proj *project.Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nClassification: %s\n", proj.Spec.Title, proj.Classification)
	if proj.HandoffDirection != "" {
		fmt.Fprintf(&sb, "Handoff direction: %s\n", proj.HandoffDirection)
	}
	fmt.Fprintf(&sb, "\nRequest:\n%s\n", proj.OriginalRequest)
	if len(proj.Spec.Deliverables) > 0 {
		sb.WriteString("\nDeliverables:\n")
		for _, d := range proj.Spec.Deliverables {
			fmt.Fprintf(&sb, "  - %s\n", d)
		}
	}
	return sb.String()
}
