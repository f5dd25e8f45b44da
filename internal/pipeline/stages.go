// Package pipeline defines the stage graph and drives projects through it:
// triage, routing, stage execution, and completion. Every step persists the
// project context before returning, so a crashed run resumes by re-invoking
// the same operations.
package pipeline

import "github.com/fyrsmithlabs/crewd/internal/project"

// Stage is one unit of crew work. It consumes targeted context from its
// upstream artifacts and produces exactly one artifact type.
type Stage struct {
	// Code is the artifact type the stage produces, e.g. "BIR".
	Code string

	// Name is the human-readable stage name.
	Name string

	// Consumer is the context-map consumer ID for this stage's role.
	Consumer string

	// Crew owns the stage.
	Crew project.Crew

	// Requires lists the upstream artifact types the stage cannot run
	// without. Requests use base codes, so revisions satisfy them.
	Requires []string
}

// DevStages is the development track in causal production order.
func DevStages() []Stage {
	return []Stage{
		{Code: "PRD", Name: "Product Requirements", Consumer: "biz_analyst", Crew: project.CrewDev},
		{Code: "TAD", Name: "Technical Architecture", Consumer: "architect", Crew: project.CrewDev, Requires: []string{"PRD"}},
		{Code: "SRR", Name: "Security Review", Consumer: "security", Crew: project.CrewDev, Requires: []string{"PRD", "TAD"}},
		{Code: "UXD", Name: "UX Design", Consumer: "ux_designer", Crew: project.CrewDev, Requires: []string{"PRD", "SRR"}},
		{Code: "TIP", Name: "Implementation Plan", Consumer: "senior_dev", Crew: project.CrewDev, Requires: []string{"PRD", "TAD", "UXD"}},
		{Code: "MTP", Name: "Master Test Plan", Consumer: "qa_lead", Crew: project.CrewDev, Requires: []string{"PRD", "TIP", "TAD"}},
		{Code: "BIR", Name: "Backend Implementation", Consumer: "backend_dev", Crew: project.CrewDev, Requires: []string{"TIP", "TAD", "MTP"}},
		{Code: "FIR", Name: "Frontend Implementation", Consumer: "frontend_dev", Crew: project.CrewDev, Requires: []string{"TIP", "UXD", "BIR"}},
		{Code: "DBAR", Name: "Database Review", Consumer: "dba", Crew: project.CrewDev, Requires: []string{"BIR", "TAD", "SRR"}},
		{Code: "DIR", Name: "DevOps Implementation", Consumer: "devops", Crew: project.CrewDev, Requires: []string{"TIP", "TAD", "SRR"}},
		{Code: "TAR", Name: "Test Automation", Consumer: "test_auto", Crew: project.CrewDev, Requires: []string{"MTP", "TIP", "BIR"}},
		{Code: "PTR", Name: "Penetration Test", Consumer: "pen_test", Crew: project.CrewDev, Requires: []string{"SRR", "BIR", "FIR", "DIR"}},
		{Code: "VERIFY", Name: "Verification", Consumer: "verify", Crew: project.CrewDev, Requires: []string{"TAR", "BIR", "FIR", "DIR"}},
	}
}

// DSStages is the data-science track in causal production order.
func DSStages() []Stage {
	return []Stage{
		{Code: "DSP", Name: "Data Strategy Plan", Consumer: "ds_lead", Crew: project.CrewDS},
		{Code: "ADR", Name: "Analysis Report", Consumer: "ds_analyst", Crew: project.CrewDS, Requires: []string{"DSP"}},
		{Code: "DSR", Name: "Data Science Report", Consumer: "ds_reporter", Crew: project.CrewDS, Requires: []string{"DSP", "ADR"}},
	}
}

// StageCodes projects a stage list to its artifact type codes.
func StageCodes(stages []Stage) []string {
	codes := make([]string, len(stages))
	for i, s := range stages {
		codes[i] = s.Code
	}
	return codes
}

// Consumers collects the distinct consumer IDs across stage lists, for
// context-map validation at startup.
func Consumers(stageLists ...[]Stage) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, stages := range stageLists {
		for _, s := range stages {
			if _, ok := seen[s.Consumer]; ok {
				continue
			}
			seen[s.Consumer] = struct{}{}
			out = append(out, s.Consumer)
		}
	}
	return out
}

// NewMachine builds the status machine for the standard stage graph.
func NewMachine() *project.Machine {
	return project.NewMachine(StageCodes(DevStages()), StageCodes(DSStages()))
}

// TrackFor returns the stages a crew runs.
func TrackFor(crew project.Crew) []Stage {
	if crew == project.CrewDS {
		return DSStages()
	}
	return DevStages()
}
