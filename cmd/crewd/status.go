package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show project status, or list all projects",
	Long: `Show one project's status, artifacts, and checkpoint history, or list
every known project when no ID is given. A unique ID prefix is accepted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "include the audit log")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		ids, err := a.store.List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			proj, err := a.store.Load(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %-5s  %s\n", proj.ProjectID, proj.Classification, proj.Status)
		}
		return nil
	}

	proj, err := a.loadProject(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Project %s\n", proj.ProjectID)
	fmt.Fprintf(out, "  status:         %s\n", proj.Status)
	fmt.Fprintf(out, "  classification: %s\n", proj.Classification)
	if proj.HandoffDirection != "" {
		fmt.Fprintf(out, "  direction:      %s\n", proj.HandoffDirection)
	}
	if proj.NextAction != "" {
		fmt.Fprintf(out, "  next action:    %s\n", proj.NextAction)
	}

	if len(proj.Artifacts) > 0 {
		fmt.Fprintln(out, "\nArtifacts:")
		for _, art := range proj.Artifacts {
			fmt.Fprintf(out, "  %-6s %s  %s\n", art.Type, art.CreatedAt.Format("2006-01-02 15:04"), art.Path)
		}
	}

	if len(proj.Checkpoints) > 0 {
		fmt.Fprintln(out, "\nCheckpoints:")
		for _, cp := range proj.Checkpoints {
			line := fmt.Sprintf("  %-20s %s", cp.Name, cp.Outcome)
			if cp.Reason != "" {
				line += "  (" + cp.Reason + ")"
			}
			fmt.Fprintln(out, line)
		}
	}

	if statusVerbose && len(proj.AuditLog) > 0 {
		fmt.Fprintln(out, "\nAudit log:")
		for _, e := range proj.AuditLog {
			fmt.Fprintf(out, "  %s  %-22s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Event, e.Detail)
		}
	}

	return nil
}
