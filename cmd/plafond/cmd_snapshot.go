package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"plafond/internal/cache"
	"plafond/internal/reliability"
	"plafond/internal/sink"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or restore cache snapshots",
	Long: `Snapshots are portable single-file archives of one cache generation,
checksummed so corruption is detected on restore. Restoring replaces
the cache atomically with a replica of the archived generation.`,
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export [destination]",
	Short: "Write a snapshot archive of the current cache",
	Long: `The destination may be a file path, s3://bucket/key, or - for stdout.
Without one, a timestamped archive is written to the data directory.`,
	RunE: runSnapshotExport,
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <source>",
	Short: "Rebuild the cache from a snapshot archive",
	RunE:  runSnapshotRestore,
}

func init() {
	snapshotCmd.AddCommand(snapshotExportCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
}

func newSnapshotService(writer *sink.Writer, s3Client *reliability.S3Client) *reliability.SnapshotService {
	return reliability.NewSnapshotService(cache.NewBuilder(log), writer, s3Client, log)
}

func runSnapshotExport(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return &usageError{"export takes at most one destination"}
	}

	destArg := filepath.Join(cfg.DataDir,
		fmt.Sprintf("plafond-%s.snap", time.Now().UTC().Format("20060102-150405")))
	if len(args) == 1 {
		destArg = args[0]
	}
	dest, err := sink.ParseDestination(destArg)
	if err != nil {
		return &usageError{err.Error()}
	}

	ctx := cmd.Context()
	writer, s3Client := newWriter(ctx)
	_, err = newSnapshotService(writer, s3Client).Export(ctx, cfg.CachePath(), dest)
	return err
}

func runSnapshotRestore(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &usageError{"restore takes exactly one source: a file path or s3://bucket/key"}
	}

	ctx := cmd.Context()
	writer, s3Client := newWriter(ctx)
	_, err := newSnapshotService(writer, s3Client).Restore(ctx, args[0], cfg.CachePath())
	return err
}
