package main

import (
	"context"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch the ceiling dataset and refresh the local cache",
	Long: `Fetches the dataset from PLAFOND_SOURCE_URL, validates it and
atomically replaces the local cache. The previous cache survives any
failure, and an unchanged upstream payload leaves it untouched.`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	if cfg.SourceURL == "" {
		return &usageError{"PLAFOND_SOURCE_URL is not set"}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchDeadline)
	defer cancel()

	outcome, err := newOrchestrator().Download(ctx)
	if err != nil {
		return err
	}

	if outcome.Unchanged {
		log.Info().
			Str("generation", outcome.GenerationID).
			Msg("Upstream unchanged, cache kept")
		return nil
	}

	log.Info().
		Str("generation", outcome.GenerationID).
		Str("source_version", outcome.SourceVersion).
		Int("records", outcome.RecordCount).
		Int("bands", outcome.BandCount).
		Msg("Cache refreshed")
	return nil
}
