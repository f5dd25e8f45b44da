package project

import (
	"errors"
	"fmt"
)

// Status is the project's progress label. Labels are breadcrumbs backed by an
// explicit transition machine: a status never regresses silently, and the
// only regressions allowed are explicit rejection transitions.
type Status string

const (
	StatusInitiated           Status = "INITIATED"
	StatusClassified          Status = "CLASSIFIED"
	StatusRoutedToDev         Status = "ROUTED_TO_DEV"
	StatusRoutedToDS          Status = "ROUTED_TO_DS"
	StatusRoutedToDSPhase1    Status = "ROUTED_TO_DS_PHASE1"
	StatusRoutedToDevPhase1   Status = "ROUTED_TO_DEV_PHASE1"
	StatusRoutedBidirectional Status = "ROUTED_BIDIRECTIONAL"
	StatusRoutingFailed       Status = "ROUTING_FAILED"
	StatusComplete            Status = "COMPLETE"
)

// Transition errors.
var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrManualTrack       = errors.New("bidirectional projects require manual coordination")
)

// StageComplete is the status recorded after the stage producing the given
// artifact type has persisted its artifact and logged completion.
func StageComplete(artifactType string) Status {
	return Status(artifactType + "_COMPLETE")
}

// ActivePhase2 is the status set when a handoff is approved and the receiving
// crew becomes active.
func ActivePhase2(crew Crew) Status {
	return Status("ACTIVE_" + string(crew) + "_PHASE2")
}

// ReturnedTo is the status set when a handoff is rejected and control returns
// to the delivering crew.
func ReturnedTo(crew Crew) Status {
	return Status("RETURNED_TO_" + string(crew))
}

// Machine validates status transitions against ordered per-track sequences.
// Stage orders are supplied by the pipeline at startup; the machine itself
// only knows the track shape (triage, routing, stage completions, terminal).
type Machine struct {
	devStages []string
	dsStages  []string
}

// NewMachine builds a machine from the artifact-type codes of each crew's
// stages, in causal production order.
func NewMachine(devStages, dsStages []string) *Machine {
	return &Machine{devStages: devStages, dsStages: dsStages}
}

// sequence returns the full ordered status sequence for the context's track.
// BIDIRECTIONAL tracks end at the manual-coordination status: no automated
// transitions are defined past it.
func (m *Machine) sequence(c *Context) []Status {
	seq := []Status{StatusInitiated, StatusClassified}

	appendStages := func(stages []string) {
		for _, s := range stages {
			seq = append(seq, StageComplete(s))
		}
	}

	switch c.Classification {
	case ClassificationDev:
		seq = append(seq, StatusRoutedToDev)
		appendStages(m.devStages)
	case ClassificationDS:
		seq = append(seq, StatusRoutedToDS)
		appendStages(m.dsStages)
	case ClassificationJoint:
		switch c.HandoffDirection {
		case DirectionDSToDev:
			seq = append(seq, StatusRoutedToDSPhase1)
			appendStages(m.dsStages)
			seq = append(seq, ActivePhase2(CrewDev))
			appendStages(m.devStages)
		case DirectionDevToDS:
			seq = append(seq, StatusRoutedToDevPhase1)
			appendStages(m.devStages)
			seq = append(seq, ActivePhase2(CrewDS))
			appendStages(m.dsStages)
		default:
			return append(seq, StatusRoutedBidirectional)
		}
	default:
		return seq
	}

	return append(seq, StatusComplete)
}

func indexOf(seq []Status, s Status) int {
	for i, v := range seq {
		if v == s {
			return i
		}
	}
	return -1
}

// Advance moves the context forward one step and logs the transition. It
// rejects regressions, jumps, and any transition out of the manual
// bidirectional state. The phase-2 activation boundary is reserved for
// BeginPhase2, which only the handoff approval path calls.
func (m *Machine) Advance(c *Context, to Status) error {
	if c.Status == StatusRoutedBidirectional {
		return fmt.Errorf("%w: project %s", ErrManualTrack, c.ProjectID)
	}
	if to == StatusRoutingFailed {
		if c.Status != StatusClassified {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Status, to)
		}
		c.Status = to
		c.LogEvent("STATUS_ADVANCED", string(to))
		return nil
	}

	seq := m.sequence(c)
	from := indexOf(seq, c.Status)
	target := indexOf(seq, to)
	if from < 0 || target != from+1 {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Status, to)
	}
	if to == ActivePhase2(CrewDev) || to == ActivePhase2(CrewDS) {
		return fmt.Errorf("%w: %s requires handoff approval", ErrIllegalTransition, to)
	}

	c.Status = to
	c.LogEvent("STATUS_ADVANCED", string(to))
	return nil
}

// BeginPhase2 activates the receiving crew after an approved handoff. Legal
// from the end of phase 1 or from a returned state after resubmission.
func (m *Machine) BeginPhase2(c *Context, receiving Crew) error {
	to := ActivePhase2(receiving)
	seq := m.sequence(c)
	target := indexOf(seq, to)
	if target < 0 {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Status, to)
	}

	from := indexOf(seq, c.Status)
	returned := c.Status == ReturnedTo(c.Phase1Crew)
	if !returned && from != target-1 {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Status, to)
	}

	c.Status = to
	c.LogEvent("STATUS_ADVANCED", string(to))
	return nil
}

// Return is the explicit rejection regression: control goes back to the
// delivering crew with a recorded reason. This is the only way a status moves
// backwards.
func (m *Machine) Return(c *Context, delivering Crew, reason string) {
	c.Status = ReturnedTo(delivering)
	c.LogEvent("STATUS_RETURNED", reason)
}

// Reached reports whether the context's status already reflects the given
// step, which makes re-running the producing stage a no-op. Off-sequence
// statuses (returned, failed, manual) never count as reached.
func (m *Machine) Reached(c *Context, s Status) bool {
	seq := m.sequence(c)
	from := indexOf(seq, c.Status)
	target := indexOf(seq, s)
	return from >= 0 && target >= 0 && from >= target
}
