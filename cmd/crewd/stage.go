package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/crewd/internal/pipeline"
	"github.com/fyrsmithlabs/crewd/internal/project"
)

var stageFile string

var stageCmd = &cobra.Command{
	Use:   "stage <project-id> <stage-code>",
	Short: "Record a stage's produced document and advance the project",
	Long: `Run one pipeline stage. The stage's document is read from --file (or
stdin with "-"), validated against the stage's upstream requirements, stored
as the stage artifact, indexed, and the project status advanced. Re-running
a completed stage is a no-op.

Examples:
  crewd stage PROJ-1A2B3C4D PRD --file prd.md
  cat tad.md | crewd stage PROJ-1A2B3C4D TAD --file -`,
	Args: cobra.ExactArgs(2),
	RunE: runStage,
}

func init() {
	stageCmd.Flags().StringVarP(&stageFile, "file", "f", "", "document file for the stage output (required, - for stdin)")
	_ = stageCmd.MarkFlagRequired("file")
}

// fileRunner serves a pre-written document as the stage output.
type fileRunner struct {
	content string
}

func (r fileRunner) Run(context.Context, pipeline.Stage, pipeline.RunInput) (string, error) {
	return r.content, nil
}

func findStage(code string, crew project.Crew) (pipeline.Stage, bool) {
	for _, st := range pipeline.TrackFor(crew) {
		if st.Code == code {
			return st, true
		}
	}
	return pipeline.Stage{}, false
}

func runStage(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	proj, err := a.loadProject(args[0])
	if err != nil {
		return err
	}

	code := strings.ToUpper(args[1])
	stage, ok := findStage(code, project.CrewDev)
	if !ok {
		stage, ok = findStage(code, project.CrewDS)
	}
	if !ok {
		return fmt.Errorf("unknown stage code %q", code)
	}

	var content []byte
	if stageFile == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(stageFile)
	}
	if err != nil {
		return fmt.Errorf("reading stage document: %w", err)
	}

	exec, err := newExecutor(a)
	if err != nil {
		return err
	}

	ran, err := exec.RunStage(cmd.Context(), proj, stage, fileRunner{content: string(content)})
	if err != nil {
		return err
	}
	if !ran {
		fmt.Fprintf(cmd.OutOrStdout(), "Stage %s already complete, nothing to do\n", code)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stage %s complete, status %s\n", code, proj.Status)
	return nil
}

var completeCmd = &cobra.Command{
	Use:   "complete <project-id>",
	Short: "Mark a project finished after its final stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		proj, err := a.loadProject(args[0])
		if err != nil {
			return err
		}
		exec, err := newExecutor(a)
		if err != nil {
			return err
		}
		if err := exec.Complete(cmd.Context(), proj); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project %s complete\n", proj.ProjectID)
		return nil
	},
}

func newExecutor(a *app) (*pipeline.Executor, error) {
	return pipeline.NewExecutor(a.newLoader(), a.indexer(), pipeline.NewMachine(), a.store, a.cfg.Storage.ArtifactDir, a.logger)
}
