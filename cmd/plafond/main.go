// Package main is the entry point for plafond, the pension ceiling
// pipeline CLI.
//
// The pipeline has two independent stages: download fetches the
// authority's ceiling dataset, validates it and atomically replaces
// the local cache; run computes applicable ceilings from that cache
// without ever mutating it. The remaining commands are operational
// surface around those two stages.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"plafond/internal/config"
	"plafond/pkg/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger

	flagLogLevel string

	// bootstrapped flips once configuration and logging are up; an
	// Execute error before that point is a usage problem.
	bootstrapped bool
)

var rootCmd = &cobra.Command{
	Use:   "plafond",
	Short: "Pension ceiling pipeline",
	Long: `plafond maintains a local cache of the authority's pension ceiling
dataset and computes the ceiling applicable to a given date, plus
capping analyses over the published pension distribution.

Results go to stdout by default; all logging goes to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			bootstrapped = true
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		}

		log = logger.New(logger.Config{
			Level:  cfg.LogLevel,
			Pretty: cfg.LogPretty,
		})
		logger.SetGlobalLogger(log)

		bootstrapped = true
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if !bootstrapped {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	log.Error().Err(err).Msg("Command failed")
	os.Exit(exitCodeFor(err))
}
