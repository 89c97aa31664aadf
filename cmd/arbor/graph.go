package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <model>",
	Short: "Export the model as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart (graph LR) of the model. With --strategy the
model is rolled back first and the optimal strategy highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(false)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		doc, err := cli.ReadModel(ctx, svc.Engine, args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if highlight, _ := cmd.Flags().GetBool("strategy"); highlight {
			vars, err := modelVars(cmd, doc.Variables)
			if err != nil {
				return err
			}
			out, err := svc.Engine.Rollback(ctx, doc.Graph, vars)
			if err != nil {
				return err
			}
			if roots := runtime.FindRoots(doc.Graph); len(roots) > 0 {
				overlay = graph.StrategyOverlay(doc.Graph, roots[0], out.Strategy)
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc.Graph, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("strategy", false, "Highlight the optimal strategy")
	graphCmd.Flags().StringArray("var", nil, "Variable override name=value (repeatable)")
}
