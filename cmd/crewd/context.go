package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/crewd/internal/contextmap"
)

var contextSemantic bool

var contextCmd = &cobra.Command{
	Use:   "context <project-id> <consumer> <artifact-type...>",
	Short: "Show the context bundle a consumer would receive",
	Long: `Run the extraction cascade for a consumer against the project's
latest artifacts and print the formatted bundle. Useful for inspecting what
a stage will actually see.

Examples:
  crewd context PROJ-1A2B3C4D qa_lead BIR
  crewd context PROJ-1A2B3C4D backend_dev TIP TAD MTP --semantic`,
	Args: cobra.MinimumNArgs(3),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().BoolVar(&contextSemantic, "semantic", false, "enable the semantic search tier (needs an embedder)")
}

func runContext(cmd *cobra.Command, args []string) error {
	a, err := newApp(contextSemantic)
	if err != nil {
		return err
	}
	defer a.close()

	proj, err := a.loadProject(args[0])
	if err != nil {
		return err
	}

	consumer, types := args[1], args[2:]
	bundle, err := a.newLoader().Load(cmd.Context(), proj, consumer, types)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, t := range bundle.Types() {
		ext, _ := bundle.Get(t)
		fmt.Fprintf(out, "# %s: tier=%s truncated=%v\n", t, ext.Tier, ext.Truncated)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, bundle.Format(contextmap.Labels))
	return nil
}
