package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(false)
		if err != nil {
			return err
		}
		if svc.Loader == nil {
			return errors.New("no library configured (use --library or library.dir)")
		}
		ids, err := svc.Engine.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
