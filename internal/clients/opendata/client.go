// Package opendata fetches published pension ceiling datasets from an
// open-data endpoint.
package opendata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"plafond/internal/domain"
	"plafond/internal/version"
)

// maxPayloadBytes caps how much of a response is read. Published
// ceiling datasets are a few kilobytes; anything near this limit is a
// misconfigured URL, not data.
const maxPayloadBytes = 32 << 20 // 32 MiB

// Config controls fetch behavior.
type Config struct {
	SourceURL string
	Timeout   time.Duration // per-attempt HTTP timeout
	Retries   int           // total attempts, including the first
	Backoff   time.Duration // base delay, doubled after each failure
}

// Client for open-data dataset endpoints.
type Client struct {
	sourceURL string
	client    *http.Client
	log       zerolog.Logger
	retries   int
	backoff   time.Duration
}

// NewClient creates a new open-data client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		sourceURL: cfg.SourceURL,
		client:    &http.Client{Timeout: cfg.Timeout},
		log:       log.With().Str("client", "opendata").Logger(),
		retries:   retries,
		backoff:   cfg.Backoff,
	}
}

// Fetch downloads the dataset payload.
//
// Network errors and retryable status codes (429, 5xx) are retried
// with exponential backoff up to the configured attempt count; any
// other failure aborts immediately. The overall deadline comes from
// ctx. All failures surface as *domain.FetchError.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if c.sourceURL == "" {
		return nil, &domain.FetchError{URL: "", Attempts: 0,
			Err: fmt.Errorf("no source URL configured")}
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			delay := c.backoff << (attempt - 2)
			c.log.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("delay_ms", delay).
				Msg("Retrying fetch")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &domain.FetchError{URL: c.sourceURL, Attempts: attempt - 1,
					Err: fmt.Errorf("fetch deadline exceeded: %w", ctx.Err())}
			}
		}

		payload, retryable, err := c.fetchOnce(ctx)
		if err == nil {
			c.log.Info().
				Int("attempt", attempt).
				Int("bytes", len(payload)).
				Msg("Fetched dataset")
			return payload, nil
		}

		lastErr = err
		if !retryable {
			return nil, &domain.FetchError{URL: c.sourceURL, Attempts: attempt, Err: err}
		}
		if ctx.Err() != nil {
			return nil, &domain.FetchError{URL: c.sourceURL, Attempts: attempt,
				Err: fmt.Errorf("fetch deadline exceeded: %w", ctx.Err())}
		}
	}

	return nil, &domain.FetchError{URL: c.sourceURL, Attempts: c.retries, Err: lastErr}
}

// fetchOnce performs a single request. The second return reports
// whether the failure is worth retrying.
func (c *Client) fetchOnce(ctx context.Context) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sourceURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		// Connection refused, DNS failure, per-attempt timeout
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		return nil, isRetryableStatus(resp.StatusCode), err
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}
	if len(payload) > maxPayloadBytes {
		return nil, false, fmt.Errorf("response exceeds %d bytes", maxPayloadBytes)
	}
	if len(payload) == 0 {
		return nil, false, fmt.Errorf("empty response body")
	}

	return payload, false, nil
}

// isRetryableStatus reports whether a status code indicates a
// transient upstream condition.
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
