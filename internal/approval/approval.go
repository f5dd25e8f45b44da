// Package approval implements the blocking human checkpoint. A checkpoint
// request is durable before it blocks and its decision is durable before the
// caller observes it, so a crash on either side of the wait never loses the
// decision state.
package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/notify"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

const instrumentationName = "github.com/fyrsmithlabs/crewd/internal/approval"

// Common errors.
var (
	// ErrApproverRequired indicates the gate was built without an approver.
	ErrApproverRequired = errors.New("approver is required")

	// ErrNoInput indicates the input stream ended before a decision.
	ErrNoInput = errors.New("input closed before a decision was given")
)

// Decision is a resolved human verdict.
type Decision struct {
	// Approved is true for APPROVE, false for REJECT.
	Approved bool

	// Reason is required on rejection: it becomes the revision guidance.
	Reason string
}

// Prompt is what the reviewer is shown.
type Prompt struct {
	// ProjectID identifies the project.
	ProjectID string

	// Name identifies the checkpoint, e.g. "TRIAGE" or a handoff ID.
	Name string

	// Summary is the content under review.
	Summary string
}

// Approver obtains a human decision. Implementations block until one is
// available or the context is canceled.
type Approver interface {
	Decide(ctx context.Context, p Prompt) (Decision, error)
}

// TerminalApprover reads APPROVE/REJECT from an input stream, teletype
// style. Any answer other than an approval keyword is a rejection and the
// rest of the line is kept as the reason.
type TerminalApprover struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewTerminalApprover creates an approver over the given streams.
func NewTerminalApprover(in io.Reader, out io.Writer) *TerminalApprover {
	return &TerminalApprover{in: bufio.NewScanner(in), out: out}
}

// Decide implements Approver.
func (t *TerminalApprover) Decide(ctx context.Context, p Prompt) (Decision, error) {
	fmt.Fprintf(t.out, "\n=== CHECKPOINT: %s (%s) ===\n%s\n", p.Name, p.ProjectID, p.Summary)
	fmt.Fprint(t.out, "Decision [APPROVE/REJECT <reason>]: ")

	type line struct {
		text string
		err  error
	}
	ch := make(chan line, 1)
	go func() {
		if !t.in.Scan() {
			err := t.in.Err()
			if err == nil {
				err = ErrNoInput
			}
			ch <- line{err: err}
			return
		}
		ch <- line{text: t.in.Text()}
	}()

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case l := <-ch:
		if l.err != nil {
			return Decision{}, l.err
		}
		return parseDecision(l.text), nil
	}
}

func parseDecision(input string) Decision {
	trimmed := strings.TrimSpace(input)
	first, rest, _ := strings.Cut(trimmed, " ")
	switch strings.ToUpper(first) {
	case "APPROVE", "APPROVED", "YES", "Y":
		return Decision{Approved: true}
	case "REJECT", "REJECTED", "NO", "N":
		return Decision{Reason: strings.TrimSpace(rest)}
	default:
		// Anything unrecognized is a rejection with the full input as the
		// reason, matching the conservative default for a human gate.
		return Decision{Reason: trimmed}
	}
}

// Gate runs checkpoints end to end: notify, persist the pending request,
// block for the decision, persist the outcome.
type Gate struct {
	approver Approver
	notifier notify.Notifier
	store    *project.Store
	logger   *zap.Logger

	tracer          trace.Tracer
	meter           metric.Meter
	decisionCounter metric.Int64Counter
}

// NewGate creates a checkpoint gate. The notifier may be nil.
func NewGate(approver Approver, notifier notify.Notifier, store *project.Store, logger *zap.Logger) (*Gate, error) {
	if approver == nil {
		return nil, ErrApproverRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gate{
		approver: approver,
		notifier: notifier,
		store:    store,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}

	var err error
	g.decisionCounter, err = g.meter.Int64Counter(
		"crewd.approval.decisions_total",
		metric.WithDescription("Checkpoint decisions recorded"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		g.logger.Warn("failed to create decision counter", zap.Error(err))
	}

	return g, nil
}

// Request runs one checkpoint for the project. The request is recorded and
// persisted before blocking, the decision is recorded and persisted before
// returning. Notification failure is logged and tolerated: the gate still
// blocks.
func (g *Gate) Request(ctx context.Context, proj *project.Context, name, summary string) (Decision, error) {
	ctx, span := g.tracer.Start(ctx, "approval.request")
	defer span.End()

	span.SetAttributes(
		attribute.String("project_id", proj.ProjectID),
		attribute.String("checkpoint", name),
	)

	if g.notifier != nil {
		if err := g.notifier.Notify(ctx, notify.Message{
			ProjectID: proj.ProjectID,
			Subject:   "Checkpoint " + name + " awaiting decision",
			Body:      summary,
		}); err != nil {
			g.logger.Warn("checkpoint notification failed",
				zap.String("project_id", proj.ProjectID),
				zap.String("checkpoint", name),
				zap.Error(err))
		}
	}

	rec := project.CheckpointRecord{
		Name:    name,
		Summary: summary,
		Outcome: project.CheckpointRequested,
	}
	proj.AppendCheckpoint(rec)
	proj.LogEvent("CHECKPOINT_REQUESTED", name)
	if err := g.persist(proj); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, fmt.Errorf("persisting checkpoint request: %w", err)
	}

	decision, err := g.approver.Decide(ctx, Prompt{
		ProjectID: proj.ProjectID,
		Name:      name,
		Summary:   summary,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, fmt.Errorf("obtaining decision for %s: %w", name, err)
	}

	outcome := project.CheckpointRejected
	event := "CHECKPOINT_REJECTED"
	if decision.Approved {
		outcome = project.CheckpointApproved
		event = "CHECKPOINT_APPROVED"
	}
	proj.ResolveCheckpoint(name, outcome, decision.Reason)
	proj.LogEvent(event, name)
	if err := g.persist(proj); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, fmt.Errorf("persisting checkpoint decision: %w", err)
	}

	if g.decisionCounter != nil {
		g.decisionCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("checkpoint", name),
			attribute.Bool("approved", decision.Approved),
		))
	}
	g.logger.Info("checkpoint decided",
		zap.String("project_id", proj.ProjectID),
		zap.String("checkpoint", name),
		zap.Bool("approved", decision.Approved))

	return decision, nil
}

func (g *Gate) persist(proj *project.Context) error {
	if g.store == nil {
		return nil
	}
	return g.store.Save(proj)
}
