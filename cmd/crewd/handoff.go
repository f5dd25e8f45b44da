package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/crewd/internal/handoff"
	"github.com/fyrsmithlabs/crewd/internal/pipeline"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

var (
	handoffSummary     string
	handoffCriteria    []string
	handoffTypes       []string
	handoffLimitations string
)

var handoffCmd = &cobra.Command{
	Use:   "handoff <project-id>",
	Short: "Execute the crew-to-crew handoff for a joint project",
	Long: `Build a handoff package from the project's phase-1 deliverables,
validate it, and run it through the human checkpoint. Approval activates the
receiving crew's phase; rejection returns the project to the delivering crew
with the recorded reason.

Examples:
  crewd handoff PROJ-1A2B3C4D \
    --summary "Churn model finished; reports attached for the build phase." \
    --criteria "model reproducible from the report" \
    --types DSR,ADR`,
	Args: cobra.ExactArgs(1),
	RunE: runHandoff,
}

func init() {
	handoffCmd.Flags().StringVar(&handoffSummary, "summary", "", "handoff summary for the receiving crew (required)")
	handoffCmd.Flags().StringSliceVar(&handoffCriteria, "criteria", nil, "acceptance criteria (repeatable)")
	handoffCmd.Flags().StringSliceVar(&handoffTypes, "types", nil, "deliverable artifact types (default: the phase-1 track)")
	handoffCmd.Flags().StringVar(&handoffLimitations, "limitations", "", "known limitations for the receiving crew")
	_ = handoffCmd.MarkFlagRequired("summary")
}

func runHandoff(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	proj, err := a.loadProject(args[0])
	if err != nil {
		return err
	}
	if proj.Phase1Crew == "" || proj.Phase2Crew == "" {
		return fmt.Errorf("project %s has no handoff phases (classification %s, direction %s)",
			proj.ProjectID, proj.Classification, proj.HandoffDirection)
	}

	types := handoffTypes
	if len(types) == 0 {
		types = pipeline.StageCodes(pipeline.TrackFor(proj.Phase1Crew))
	}

	pkg, err := handoff.Build(proj, proj.Phase1Crew, proj.Phase2Crew, handoffSummary, handoffCriteria, types)
	if err != nil {
		return err
	}
	pkg.Limitations = handoffLimitations

	gate, err := a.gate()
	if err != nil {
		return err
	}
	svc, err := handoff.NewService(handoff.Config{Dir: a.cfg.Storage.HandoffDir}, gate, a.store, pipeline.NewMachine(), a.logger)
	if err != nil {
		return err
	}

	res, err := svc.Execute(cmd.Context(), proj, pkg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.AlreadyExecuted:
		fmt.Fprintf(out, "Handoff %s already approved, status %s\n", res.HandoffID, res.Status)
	case res.Approved:
		fmt.Fprintf(out, "Handoff %s approved, %s phase active\n", res.HandoffID, phaseCrewName(proj.Phase2Crew))
	default:
		fmt.Fprintf(out, "Handoff %s rejected: %s\n", res.HandoffID, res.Reason)
	}
	return nil
}

func phaseCrewName(crew project.Crew) string {
	if crew == project.CrewDS {
		return "data science"
	}
	return "development"
}
