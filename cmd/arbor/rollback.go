package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <model>",
	Short: "Compute the expected cost and effectiveness of a model",
	Long: `Evaluates the model root. Decision trees are rolled back and the optimal
strategy reported; Markov roots run the cohort simulation.
<model> is a JSON/YAML file or the id of a model in the library.`,
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
		vars, err := modelVars(cmd, doc.Variables)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		trace, _ := cmd.Flags().GetBool("trace")
		rows, _ := cmd.Flags().GetInt("rows")

		if trace {
			out, tr, err := svc.Engine.Trace(ctx, doc.Graph, vars)
			if err != nil {
				return err
			}
			md := tui.OutcomeMarkdown(doc.ID, out) + "\n" + tui.TraceMarkdown(tr, rows)
			return cli.Render(cmd.OutOrStdout(), format, md, struct {
				domain.Outcome
				Trace any `json:"trace"`
			}{out, tr})
		}

		out, err := svc.Engine.Rollback(ctx, doc.Graph, vars)
		if err != nil {
			return err
		}
		return cli.Render(cmd.OutOrStdout(), format, tui.OutcomeMarkdown(doc.ID, out), out)
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
	addAnalysisFlags(rollbackCmd)
	rollbackCmd.Flags().Bool("trace", false, "Print the per-cycle cohort of a Markov root")
	rollbackCmd.Flags().Int("rows", 20, "Maximum trace rows (0 prints all)")
}

// addAnalysisFlags registers the flags shared by the analysis commands.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("var", nil, "Variable override name=value (repeatable)")
	cmd.Flags().StringP("format", "f", cli.FormatText, "Output format: text, json or markdown")
}

// modelVars merges --var overrides over the variables stored in the model.
func modelVars(cmd *cobra.Command, defaults domain.Variables) (domain.Variables, error) {
	pairs, _ := cmd.Flags().GetStringArray("var")
	overrides, err := cli.ParseVars(pairs)
	if err != nil {
		return nil, err
	}
	return defaults.Merge(overrides), nil
}
