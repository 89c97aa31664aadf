package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/spf13/cobra"
)

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity <model>",
	Short: "Run a one-way sensitivity analysis",
	Long: `Perturbs each variable and reports tornado bars sorted by swing.
Without --param every variable is varied by ±20% of its value.`,
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
		specs, _ := cmd.Flags().GetStringArray("param")
		params, err := cli.ParseParams(specs)
		if err != nil {
			return err
		}

		var res domain.TornadoResult
		if len(params) == 0 {
			res, err = svc.Engine.SensitivityOneWay(ctx, doc.Graph, vars)
		} else {
			res, err = svc.Engine.Sensitivity(ctx, doc.Graph, vars, params)
		}
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		return cli.Render(cmd.OutOrStdout(), format, tui.TornadoMarkdown(doc.ID, res), res)
	},
}

func init() {
	rootCmd.AddCommand(sensitivityCmd)
	addAnalysisFlags(sensitivityCmd)
	sensitivityCmd.Flags().StringArray("param", nil, "Explicit bounds name=low:high (repeatable)")
}
