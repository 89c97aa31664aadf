package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg    = config.Default()
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor evaluates decision trees and Markov cohort models",
	Long: `Arbor rolls back cost-effectiveness decision trees, simulates Markov cohorts
and runs one-way sensitivity analyses. Models use the editor JSON shape
({nodes, edges}) and may live in a model library directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath, "Path to the arbor.yaml configuration file")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("library", "", "Directory containing the model library")
	flags.String("loader", "", "Library loader: file or loam")
	flags.String("cache", "", "Result cache backend: none, memory or redis")
}

// loadConfig reads the configuration file and applies explicit flags over it.
func loadConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")

	loaded, err := config.Load(path, flags.Changed("config"))
	if err != nil {
		return err
	}

	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("log-level", &loaded.Log.Level)
	override("log-format", &loaded.Log.Format)
	override("library", &loaded.Library.Dir)
	override("loader", &loaded.Library.Loader)
	override("cache", &loaded.Cache.Backend)

	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	logger = cli.NewLogger(cfg.Log)
	return nil
}

func services(withMetrics bool) (*cli.Services, error) {
	return cli.NewServices(cfg, logger, withMetrics)
}
