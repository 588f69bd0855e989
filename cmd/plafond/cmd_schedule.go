package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"plafond/internal/scheduler"
	"plafond/internal/sink"
)

// computeJobTimeout bounds one scheduled computation pass. Computing
// is local work; a minute is generous.
const computeJobTimeout = time.Minute

var (
	scheduleRequests  string
	scheduleOutput    string
	scheduleFormat    string
	scheduleImmediate bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Refresh the cache (and optionally recompute) on cron schedules",
	Long: `Blocks and refreshes the cache on PLAFOND_DOWNLOAD_CRON. When
--requests is given and PLAFOND_COMPUTE_CRON is set, the named request
set is also recomputed on that schedule. Stops cleanly on
SIGINT/SIGTERM; a failing job is retried at its next scheduled time.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleRequests, "requests", "", "YAML request file for the scheduled compute job")
	scheduleCmd.Flags().StringVar(&scheduleOutput, "output", "-", "scheduled compute destination")
	scheduleCmd.Flags().StringVar(&scheduleFormat, "format", "json", "scheduled compute format: table, csv or json")
	scheduleCmd.Flags().BoolVar(&scheduleImmediate, "immediate", false, "run the download once at startup, before the first cron tick")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if cfg.SourceURL == "" {
		return &usageError{"PLAFOND_SOURCE_URL is not set"}
	}

	orch := newOrchestrator()
	sched := scheduler.New(log)

	downloadJob := scheduler.NewDownloadJob(orch, cfg.FetchDeadline, log)
	if err := sched.AddJob(cfg.DownloadCron, downloadJob); err != nil {
		return &usageError{err.Error()}
	}

	if scheduleRequests != "" {
		if cfg.ComputeCron == "" {
			return &usageError{"--requests given but PLAFOND_COMPUTE_CRON is not set"}
		}
		format, err := sink.ParseFormat(scheduleFormat)
		if err != nil {
			return &usageError{err.Error()}
		}
		dest, err := sink.ParseDestination(scheduleOutput)
		if err != nil {
			return &usageError{err.Error()}
		}

		writer, _ := newWriter(cmd.Context())
		computeJob := scheduler.NewComputeJob(orch, writer, scheduleRequests, dest, format, computeJobTimeout, log)
		if err := sched.AddJob(cfg.ComputeCron, computeJob); err != nil {
			return &usageError{err.Error()}
		}
	} else if cfg.ComputeCron != "" {
		log.Warn().Msg("PLAFOND_COMPUTE_CRON is set but --requests was not given; compute job not scheduled")
	}

	if scheduleImmediate {
		if err := sched.RunNow(downloadJob); err != nil {
			log.Error().Err(err).Msg("Initial download failed, continuing on schedule")
		}
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	return nil
}
