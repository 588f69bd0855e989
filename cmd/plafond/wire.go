package main

import (
	"context"

	"plafond/internal/acquire"
	"plafond/internal/cache"
	"plafond/internal/clients/opendata"
	"plafond/internal/pipeline"
	"plafond/internal/reliability"
	"plafond/internal/sink"
)

// newOrchestrator wires both pipeline stages. Commands that only read
// the cache never exercise the acquisition side.
func newOrchestrator() *pipeline.Orchestrator {
	fetcher := opendata.NewClient(opendata.Config{
		SourceURL: cfg.SourceURL,
		Timeout:   cfg.HTTPTimeout,
		Retries:   cfg.FetchRetries,
		Backoff:   cfg.FetchBackoff,
	}, log)

	acquirer := acquire.NewService(fetcher, cache.NewBuilder(log), cfg.CachePath(), cfg.SourceURL, log)
	return pipeline.New(acquirer, cfg.CachePath(), log)
}

// newS3Client initializes the S3 client when credentials are
// configured, nil otherwise.
func newS3Client(ctx context.Context) *reliability.S3Client {
	if cfg.S3 == nil {
		log.Debug().Msg("S3 not configured - s3:// destinations disabled")
		return nil
	}

	client, err := reliability.NewS3Client(ctx, cfg.S3, log)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize S3 client - s3:// destinations disabled")
		return nil
	}
	return client
}

// newWriter builds the output writer. The nil check matters: handing
// a nil *S3Client to the interface parameter would make it non-nil.
func newWriter(ctx context.Context) (*sink.Writer, *reliability.S3Client) {
	s3Client := newS3Client(ctx)
	if s3Client == nil {
		return sink.NewWriter(nil, log), nil
	}
	return sink.NewWriter(s3Client, log), s3Client
}
