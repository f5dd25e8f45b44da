package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
)

// Common errors.
var (
	ErrProjectNotFound       = errors.New("project not found")
	ErrAmbiguousProjectID    = errors.New("project ID prefix is ambiguous")
	ErrEmptyRequest          = errors.New("project request cannot be empty")
	ErrInvalidClassification = errors.New("invalid classification")
)

// Classification is the crew assignment decided once at triage.
type Classification string

const (
	ClassificationDev   Classification = "DEV"
	ClassificationDS    Classification = "DS"
	ClassificationJoint Classification = "JOINT"
)

// Valid reports whether the classification is one of the known tracks.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationDev, ClassificationDS, ClassificationJoint:
		return true
	}
	return false
}

// Crew identifies one of the two crews a handoff can move work between.
type Crew string

const (
	CrewDev Crew = "DEV"
	CrewDS  Crew = "DS"
)

// HandoffDirection orders the phases of a JOINT project.
type HandoffDirection string

const (
	DirectionDSToDev       HandoffDirection = "DS_TO_DEV"
	DirectionDevToDS       HandoffDirection = "DEV_TO_DS"
	DirectionBidirectional HandoffDirection = "BIDIRECTIONAL"
)

// Spec is the structured requirements object produced at triage and read by
// every downstream stage.
type Spec struct {
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	BusinessGoal        string           `json:"business_goal"`
	Deliverables        []string         `json:"deliverables"`
	SuccessCriteria     []string         `json:"success_criteria"`
	EstimatedComplexity string           `json:"estimated_complexity"`
	DataRequired        bool             `json:"data_required"`
	PrimaryCrew         Classification   `json:"primary_crew"`
	HandoffDirection    HandoffDirection `json:"handoff_direction,omitempty"`
}

// Event is one entry in the append-only audit log.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
}

// CheckpointOutcome is the terminal state of a checkpoint decision.
type CheckpointOutcome string

const (
	CheckpointRequested CheckpointOutcome = "REQUESTED"
	CheckpointApproved  CheckpointOutcome = "APPROVED"
	CheckpointRejected  CheckpointOutcome = "REJECTED"
)

// CheckpointRecord is a named human decision point. Once decided it is
// terminal; a rejected stage resubmits with a new checkpoint.
type CheckpointRecord struct {
	Name        string            `json:"name"`
	Summary     string            `json:"summary"`
	Outcome     CheckpointOutcome `json:"outcome"`
	Reason      string            `json:"reason,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
}

// HandoffRecord is the outcome of one crew-to-crew handoff attempt.
type HandoffRecord struct {
	HandoffID string     `json:"handoff_id"`
	Status    string     `json:"status"`
	Path      string     `json:"path,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Context is the aggregate root for one project. It is mutated exclusively by
// appending to its collections and by validated status transitions, and must
// be persisted immediately after every mutation.
type Context struct {
	ProjectID       string         `json:"project_id"`
	CreatedAt       time.Time      `json:"created_at"`
	Status          Status         `json:"status"`
	Classification  Classification `json:"classification"`
	OriginalRequest string         `json:"original_request"`
	Spec            Spec           `json:"structured_spec"`

	AssignedCrew     string           `json:"assigned_crew,omitempty"`
	CrewLead         string           `json:"crew_lead,omitempty"`
	NextAction       string           `json:"next_action,omitempty"`
	HandoffDirection HandoffDirection `json:"handoff_direction,omitempty"`
	Phase1Crew       Crew             `json:"phase_1_crew,omitempty"`
	Phase2Crew       Crew             `json:"phase_2_crew,omitempty"`

	Artifacts   artifact.Log       `json:"artifacts"`
	Checkpoints []CheckpointRecord `json:"checkpoints"`
	Handoffs    []HandoffRecord    `json:"handoffs"`
	AuditLog    []Event            `json:"audit_log"`
}

// New creates a project context at triage time. The classification is set
// once here and is immutable thereafter.
func New(request string, classification Classification) (*Context, error) {
	if strings.TrimSpace(request) == "" {
		return nil, ErrEmptyRequest
	}
	if !classification.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClassification, classification)
	}

	return &Context{
		ProjectID:       "PROJ-" + strings.ToUpper(uuid.New().String()[:8]),
		CreatedAt:       time.Now().UTC(),
		Status:          StatusInitiated,
		Classification:  classification,
		OriginalRequest: request,
		Artifacts:       artifact.Log{},
		Checkpoints:     []CheckpointRecord{},
		Handoffs:        []HandoffRecord{},
		AuditLog:        []Event{},
	}, nil
}

// LogEvent appends a timestamped event to the audit log.
func (c *Context) LogEvent(event, detail string) {
	c.AuditLog = append(c.AuditLog, Event{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Detail:    detail,
	})
}

// AppendArtifact registers a produced document and logs the append.
func (c *Context) AppendArtifact(a artifact.Artifact) (artifact.Artifact, error) {
	stored, err := c.Artifacts.Append(a)
	if err != nil {
		return artifact.Artifact{}, err
	}
	c.LogEvent("ARTIFACT_REGISTERED", fmt.Sprintf("%s: %s", stored.Type, stored.Path))
	return stored, nil
}

// AppendCheckpoint records a checkpoint request or decision.
func (c *Context) AppendCheckpoint(rec CheckpointRecord) {
	if rec.RequestedAt.IsZero() {
		rec.RequestedAt = time.Now().UTC()
	}
	c.Checkpoints = append(c.Checkpoints, rec)
}

// ResolveCheckpoint finalizes the most recent pending checkpoint with the
// given name. Decided checkpoints are terminal, so only a REQUESTED record
// is eligible; resolving a name with no pending record is a no-op.
func (c *Context) ResolveCheckpoint(name string, outcome CheckpointOutcome, reason string) {
	for i := len(c.Checkpoints) - 1; i >= 0; i-- {
		rec := &c.Checkpoints[i]
		if rec.Name == name && rec.Outcome == CheckpointRequested {
			now := time.Now().UTC()
			rec.Outcome = outcome
			rec.Reason = reason
			rec.DecidedAt = &now
			return
		}
	}
}

// AppendHandoff records a handoff outcome.
func (c *Context) AppendHandoff(rec HandoffRecord) {
	c.Handoffs = append(c.Handoffs, rec)
}
