package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <model>...",
	Short: "Check models for structural problems",
	Long: `Runs strict validation: probabilities, matrix states, horizons, duplicate ids
and dangling edges. Analyses stay permissive unless strict_validation is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(false)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		failed := 0
		for _, ref := range args {
			doc, err := cli.ReadModel(cmd.Context(), svc.Engine, ref)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s: %v\n", ref, err)
				continue
			}
			if err := svc.Engine.Validate(doc.Graph, doc.Variables); err != nil {
				failed++
				fmt.Fprintf(out, "%s: invalid\n", ref)
				problems := schema.ValidationErrors(err)
				if len(problems) == 0 {
					problems = []error{err}
				}
				for _, e := range problems {
					fmt.Fprintf(out, "  - %v\n", e)
				}
				continue
			}
			fmt.Fprintf(out, "%s: valid ✅\n", ref)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d models failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
