package scheduler

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"plafond/internal/domain"
	"plafond/internal/pipeline"
	"plafond/internal/sink"
)

// DownloadJob refreshes the ceiling cache from the upstream authority.
type DownloadJob struct {
	orch    *pipeline.Orchestrator
	timeout time.Duration
	log     zerolog.Logger
}

// NewDownloadJob creates the download job. timeout bounds one whole
// acquisition, retries included.
func NewDownloadJob(orch *pipeline.Orchestrator, timeout time.Duration, log zerolog.Logger) *DownloadJob {
	return &DownloadJob{
		orch:    orch,
		timeout: timeout,
		log:     log.With().Str("job", "download_ceilings").Logger(),
	}
}

// Name returns the job name.
func (j *DownloadJob) Name() string {
	return "download_ceilings"
}

// Run executes one acquisition.
func (j *DownloadJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	outcome, err := j.orch.Download(ctx)
	if err != nil {
		return err
	}

	if outcome.Unchanged {
		j.log.Info().Str("generation", outcome.GenerationID).Msg("Upstream unchanged, cache kept")
		return nil
	}

	j.log.Info().
		Str("generation", outcome.GenerationID).
		Str("source_version", outcome.SourceVersion).
		Int("records", outcome.RecordCount).
		Msg("Cache refreshed")
	return nil
}

// ComputeJob recomputes the ceilings named in a request file and
// delivers them to a fixed destination. The file is re-read on every
// run so edits take effect without a restart.
type ComputeJob struct {
	orch         *pipeline.Orchestrator
	writer       *sink.Writer
	requestsPath string
	dest         sink.Destination
	format       sink.Format
	timeout      time.Duration
	log          zerolog.Logger
}

// NewComputeJob creates the compute job.
func NewComputeJob(
	orch *pipeline.Orchestrator,
	writer *sink.Writer,
	requestsPath string,
	dest sink.Destination,
	format sink.Format,
	timeout time.Duration,
	log zerolog.Logger,
) *ComputeJob {
	return &ComputeJob{
		orch:         orch,
		writer:       writer,
		requestsPath: requestsPath,
		dest:         dest,
		format:       format,
		timeout:      timeout,
		log:          log.With().Str("job", "compute_ceilings").Logger(),
	}
}

// Name returns the job name.
func (j *ComputeJob) Name() string {
	return "compute_ceilings"
}

// Run executes one computation pass over the request file.
func (j *ComputeJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	data, err := os.ReadFile(j.requestsPath)
	if err != nil {
		return &domain.StorageError{Op: "read", Path: j.requestsPath, Err: err}
	}
	set, err := domain.ParseRequestFile(data)
	if err != nil {
		return err
	}
	targets, err := set.Normalize()
	if err != nil {
		return err
	}

	results, err := j.orch.Run(ctx, targets)
	if err != nil {
		return err
	}

	payload, err := sink.EncodeResults(results, j.format)
	if err != nil {
		return err
	}
	if err := j.writer.Write(ctx, j.dest, payload); err != nil {
		return err
	}

	j.log.Info().
		Int("results", len(results)).
		Str("destination", j.dest.String()).
		Msg("Ceilings computed")
	return nil
}
