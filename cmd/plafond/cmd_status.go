package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plafond/internal/cache"
	"plafond/internal/pipeline"
)

var (
	statusJSON   bool
	statusVerify bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report pipeline state, cache metadata and disk headroom",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "machine-readable output")
	statusCmd.Flags().BoolVar(&statusVerify, "verify", false, "also run a SQLite integrity check over the cache")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st := pipeline.Describe(cmd.Context(), cfg.CachePath(), cfg.DataDir, cfg.DiskFloorMB, log)

	verified := false
	if statusVerify && st.State != pipeline.StateUninitialized {
		if err := verifyCache(cmd); err != nil {
			return err
		}
		verified = true
	}

	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("State:       %s\n", st.StateName)
	fmt.Printf("Cache:       %s\n", st.CachePath)
	if st.Cache != nil {
		fmt.Printf("Generation:  %s\n", st.Cache.GenerationID)
		fmt.Printf("Source:      %s (version %s)\n", st.Cache.SourceURL, st.Cache.SourceVersion)
		fmt.Printf("Fetched:     %s\n", st.Cache.FetchedAt.Format(time.RFC3339))
		fmt.Printf("Records:     %d ceiling records, %d distribution bands\n", st.Cache.RecordCount, st.Cache.BandCount)
		fmt.Printf("Size:        %d bytes\n", st.Cache.SizeBytes)
	}
	if st.CacheError != "" {
		fmt.Printf("Cache error: %s\n", st.CacheError)
	}
	if st.Disk != nil {
		fmt.Printf("Disk:        %d MB free of %d MB (%.1f%% used)\n",
			st.Disk.FreeMB, st.Disk.TotalMB, st.Disk.UsedPercent)
		if st.Disk.Low {
			fmt.Printf("WARNING:     free space is below the %d MB floor\n", st.Disk.FloorMB)
		}
	}
	if verified {
		fmt.Printf("Integrity:   ok\n")
	}
	return nil
}

// verifyCache surfaces corruption as a storage error so the exit code
// tells cron wrappers the cache needs a re-download or restore.
func verifyCache(cmd *cobra.Command) error {
	store, err := cache.Open(cfg.CachePath())
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Verify(cmd.Context())
}
