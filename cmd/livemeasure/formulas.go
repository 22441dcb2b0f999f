package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/livemeasure/livemeasure/pkg/formula"
)

func newFormulasCmd() *cobra.Command {
	var (
		newCode   bool
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "formulas",
		Short: "List the formula catalog in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFormulas(os.Stdout, formula.DefaultPlan().Formulas(newCode), outputFmt)
		},
	}

	cmd.Flags().BoolVar(&newCode, "new-code", false, "List the new code variant")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}

type formulaRow struct {
	Position  int      `json:"position"`
	Metric    string   `json:"metric"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	DependsOn []string `json:"depends_on,omitempty"`
}

func printFormulas(w io.Writer, formulas []*formula.Formula, outputFmt string) error {
	rows := make([]formulaRow, len(formulas))
	for i, f := range formulas {
		rows[i] = formulaRow{
			Position: i + 1,
			Metric:   f.Metric.Key,
			Name:     f.Metric.Name,
			Type:     string(f.Metric.Type),
		}
		for _, dep := range f.DependsOn {
			rows[i].DependsOn = append(rows[i].DependsOn, dep.Key)
		}
	}

	switch outputFmt {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tMETRIC\tTYPE\tDEPENDS ON")
		for _, r := range rows {
			deps := strings.Join(r.DependsOn, ", ")
			if deps == "" {
				deps = "-"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Position, r.Metric, r.Type, deps)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", outputFmt)
	}
}
