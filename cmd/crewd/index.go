package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/crewd/internal/loader"
)

var indexCmd = &cobra.Command{
	Use:   "index <project-id>",
	Short: "Index the project's artifacts into the semantic store",
	Long: `Chunk and embed every on-disk artifact of the project. Unchanged
documents are skipped, changed documents replace their previous chunks, so
the command is safe to re-run at any time.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	proj, err := a.loadProject(args[0])
	if err != nil {
		return err
	}

	ix, err := loader.NewIndexer(a.vectors, a.cfg.Extraction, a.logger)
	if err != nil {
		return err
	}

	n, err := ix.IndexProject(cmd.Context(), proj)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks for %s\n", n, proj.ProjectID)
	return nil
}
