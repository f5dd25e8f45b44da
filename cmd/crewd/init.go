package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/crewd/internal/pipeline"
)

var initCmd = &cobra.Command{
	Use:   "init <request...>",
	Short: "Triage a new project request",
	Long: `Classify a request, run the triage checkpoint, and route the project
to its crew. Prints the project ID on success.

Examples:
  crewd init "build a customer portal with an api"
  crewd init "predict churn and build a dashboard for it"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	gate, err := a.gate()
	if err != nil {
		return err
	}
	svc, err := pipeline.NewService(pipeline.KeywordClassifier{}, gate, a.store, pipeline.NewMachine(), a.logger)
	if err != nil {
		return err
	}

	request := strings.Join(args, " ")
	proj, err := svc.Triage(cmd.Context(), request)
	if errors.Is(err, pipeline.ErrTriageRejected) {
		fmt.Fprintf(cmd.OutOrStdout(), "Project %s: triage rejected\n", proj.ProjectID)
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Project %s\n  classification: %s\n  status: %s\n  next: %s\n",
		proj.ProjectID, proj.Classification, proj.Status, proj.NextAction)
	return nil
}
