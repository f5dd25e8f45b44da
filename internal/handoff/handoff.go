// Package handoff implements the crew-to-crew transfer protocol for joint
// projects. A handoff is a validated, durable package of deliverables that
// passes a human checkpoint before the receiving crew's phase begins.
package handoff

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

// Common errors.
var (
	ErrNilProject = errors.New("project context is required")
	ErrSameCrew   = errors.New("delivering and receiving crew must differ")
)

// MinSummaryChars is the shortest acceptable handoff summary. A summary is
// the receiving crew's orientation; a few words is not one.
const MinSummaryChars = 50

// Deliverable is one artifact handed to the receiving crew.
type Deliverable struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

// Package is the complete handoff document persisted for the receiving
// crew. Its ID is deterministic per project and direction, so re-running a
// crashed handoff targets the same package.
type Package struct {
	HandoffID          string        `json:"handoff_id"`
	ProjectID          string        `json:"project_id"`
	DeliveringCrew     project.Crew  `json:"delivering_crew"`
	ReceivingCrew      project.Crew  `json:"receiving_crew"`
	Summary            string        `json:"summary"`
	Deliverables       []Deliverable `json:"deliverables"`
	AcceptanceCriteria []string      `json:"acceptance_criteria"`
	Limitations        string        `json:"limitations,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// PackageID builds the deterministic handoff identifier, e.g.
// "HO-PROJ-1A2B3C4D-DS2DEV".
func PackageID(projectID string, delivering, receiving project.Crew) string {
	return fmt.Sprintf("HO-%s-%s2%s", projectID, delivering, receiving)
}

// Build assembles a package from the project's latest artifacts of the
// given types. Types with no recorded artifact are skipped here; Validate
// reports files that have gone missing.
func Build(proj *project.Context, delivering, receiving project.Crew, summary string, criteria []string, artifactTypes []string) (*Package, error) {
	if proj == nil {
		return nil, ErrNilProject
	}
	if delivering == receiving {
		return nil, ErrSameCrew
	}

	pkg := &Package{
		HandoffID:          PackageID(proj.ProjectID, delivering, receiving),
		ProjectID:          proj.ProjectID,
		DeliveringCrew:     delivering,
		ReceivingCrew:      receiving,
		Summary:            summary,
		AcceptanceCriteria: criteria,
		CreatedAt:          time.Now().UTC(),
	}

	for _, t := range artifactTypes {
		art, ok := proj.Artifacts.Latest(t)
		if !ok {
			continue
		}
		pkg.Deliverables = append(pkg.Deliverables, Deliverable{
			Type:        art.Type,
			Path:        art.Path,
			Description: art.Description,
		})
	}

	return pkg, nil
}

// ValidationError aggregates every problem found in a package so the
// delivering crew fixes them in one round instead of discovering them one
// at a time.
type ValidationError struct {
	HandoffID string
	Issues    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("handoff %s invalid: %s", e.HandoffID, strings.Join(e.Issues, "; "))
}

// Validate checks the package against the transfer contract. All issues
// are collected before returning.
func (p *Package) Validate() error {
	var issues []string

	if len(strings.TrimSpace(p.Summary)) < MinSummaryChars {
		issues = append(issues, fmt.Sprintf("summary is %d chars, need at least %d",
			len(strings.TrimSpace(p.Summary)), MinSummaryChars))
	}

	if len(p.AcceptanceCriteria) == 0 {
		issues = append(issues, "no acceptance criteria")
	}
	for i, c := range p.AcceptanceCriteria {
		if strings.TrimSpace(c) == "" {
			issues = append(issues, fmt.Sprintf("acceptance criterion %d is empty", i))
		}
	}

	if len(p.Deliverables) == 0 {
		issues = append(issues, "no deliverables")
	}
	for _, d := range p.Deliverables {
		ref := artifact.Artifact{Type: d.Type, Path: d.Path}
		if !ref.Exists() {
			issues = append(issues, fmt.Sprintf("deliverable %s file missing: %s", d.Type, d.Path))
		}
	}

	if len(issues) > 0 {
		return &ValidationError{HandoffID: p.HandoffID, Issues: issues}
	}
	return nil
}

// Prompt renders the package for the human checkpoint.
func (p *Package) Prompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Handoff %s: %s -> %s\n\n", p.HandoffID, p.DeliveringCrew, p.ReceivingCrew)
	fmt.Fprintf(&sb, "Summary:\n%s\n\nDeliverables:\n", p.Summary)
	for _, d := range p.Deliverables {
		fmt.Fprintf(&sb, "  - %s (%s)", d.Type, d.Path)
		if d.Description != "" {
			fmt.Fprintf(&sb, ": %s", d.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nAcceptance criteria:\n")
	for _, c := range p.AcceptanceCriteria {
		fmt.Fprintf(&sb, "  - %s\n", c)
	}
	if p.Limitations != "" {
		fmt.Fprintf(&sb, "\nKnown limitations:\n%s\n", p.Limitations)
	}
	return sb.String()
}
