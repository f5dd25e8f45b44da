package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
)

var (
	artifactName string
	artifactDesc string
	artifactBy   string
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Manage project artifacts",
}

var artifactAddCmd = &cobra.Command{
	Use:   "add <project-id> <type> <path>",
	Short: "Register an externally produced document as a project artifact",
	Long: `Append an artifact record pointing at an existing document. Use this
for documents produced outside the stage workflow, including revisions
(register a "BIR_R" to supersede a "BIR").

Examples:
  crewd artifact add PROJ-1A2B3C4D BIR ./reports/backend.md
  crewd artifact add PROJ-1A2B3C4D BIR_R ./reports/backend-rev2.md --by backend_dev`,
	Args: cobra.ExactArgs(3),
	RunE: runArtifactAdd,
}

func init() {
	artifactAddCmd.Flags().StringVar(&artifactName, "name", "", "human-readable artifact name")
	artifactAddCmd.Flags().StringVar(&artifactDesc, "description", "", "artifact description for handoff packages")
	artifactAddCmd.Flags().StringVar(&artifactBy, "by", "manual", "producing role")
	artifactCmd.AddCommand(artifactAddCmd)
	rootCmd.AddCommand(artifactCmd)
}

func runArtifactAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	proj, err := a.loadProject(args[0])
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[2])
	if err != nil {
		return err
	}

	art := artifact.Artifact{
		Type:        strings.ToUpper(args[1]),
		Name:        artifactName,
		Path:        path,
		Description: artifactDesc,
		CreatedBy:   artifactBy,
	}
	if !art.Exists() {
		return fmt.Errorf("no file at %s", path)
	}

	stored, err := proj.AppendArtifact(art)
	if err != nil {
		return err
	}
	if err := a.store.Save(proj); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s artifact for %s: %s\n", stored.Type, proj.ProjectID, stored.Path)
	return nil
}
