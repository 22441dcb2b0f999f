package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/formula"
	"github.com/livemeasure/livemeasure/pkg/issues"
)

func newValidateCmd() *cobra.Command {
	var (
		inputPath string
		treePath  string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration, the formula catalog and optionally an input",
		Long: `Loads the configuration, schedules the formula catalog, and reports any
dependency error. With --input or --tree, also validates that document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			plan, err := formula.Schedule(formula.Catalog())
			if err != nil {
				return fmt.Errorf("catalog: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Catalog: %d formulas (%d overall, %d new code)\n",
				plan.Len(), len(plan.Formulas(false)), len(plan.Formulas(true)))

			switch {
			case inputPath != "":
				in, err := loadComputeInput(computeOpts{inputPath: inputPath})
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Input: project %s, %d components, %d issues on %d components\n",
					in.ProjectID, in.Tree.Count(), len(in.Issues), issues.NewIndex(in.Issues).Components())
			case treePath != "":
				tree, err := component.LoadTree(treePath)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Tree: %d components\n", tree.Count())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Analysis input document to validate")
	cmd.Flags().StringVar(&treePath, "tree", "", "Component tree to validate")
	cmd.MarkFlagsMutuallyExclusive("input", "tree")

	return cmd
}
