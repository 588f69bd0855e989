package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plafond/internal/cache"
	"plafond/internal/domain"
)

type downloadFunc func(ctx context.Context) (domain.CacheWriteOutcome, error)

func (f downloadFunc) Download(ctx context.Context) (domain.CacheWriteOutcome, error) {
	return f(ctx)
}

func seedCache(t *testing.T, path string) {
	t.Helper()
	builder := cache.NewBuilder(zerolog.Nop())
	err := builder.Write(context.Background(), path, &cache.Content{
		GenerationID:  "gen-pipeline",
		SourceVersion: "2024-01-15",
		SourceURL:     "https://example.org/ceilings.json",
		FetchedAt:     time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC),
		PayloadSHA256: "abc",
		Records: []domain.SourceRecord{
			{EffectiveDate: "2023-01-01", Category: "monthly", Value: 3666, SourceVersion: "2024-01-15"},
			{EffectiveDate: "2024-01-01", Category: "monthly", Value: 3864, SourceVersion: "2024-01-15"},
		},
	})
	require.NoError(t, err)
}

func TestRunWithoutCacheFailsFast(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "plafond.db")
	orch := New(nil, cachePath, zerolog.Nop())

	assert.Equal(t, StateUninitialized, orch.State())

	_, err := orch.Run(context.Background(), []domain.RequestTarget{{Period: "2024-06-01", Category: "monthly"}})

	var missing *domain.CacheMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, cachePath, missing.Path)
	assert.Equal(t, StateUninitialized, orch.State())
}

func TestDownloadTransitionsToDownloaded(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "plafond.db")

	fake := downloadFunc(func(ctx context.Context) (domain.CacheWriteOutcome, error) {
		seedCache(t, cachePath)
		return domain.CacheWriteOutcome{GenerationID: "gen-pipeline", RecordCount: 2}, nil
	})
	orch := New(fake, cachePath, zerolog.Nop())
	require.Equal(t, StateUninitialized, orch.State())

	outcome, err := orch.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gen-pipeline", outcome.GenerationID)
	assert.Equal(t, StateDownloaded, orch.State())
}

func TestDownloadFailureKeepsState(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "plafond.db")

	fetchErr := &domain.FetchError{URL: "https://example.org", Attempts: 3, Err: errors.New("unreachable")}
	fake := downloadFunc(func(ctx context.Context) (domain.CacheWriteOutcome, error) {
		return domain.CacheWriteOutcome{}, fetchErr
	})
	orch := New(fake, cachePath, zerolog.Nop())

	_, err := orch.Download(context.Background())

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StateUninitialized, orch.State())
}

func TestRunComputesAndTransitions(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "plafond.db")
	seedCache(t, cachePath)

	orch := New(nil, cachePath, zerolog.Nop())
	require.Equal(t, StateDownloaded, orch.State())

	results, err := orch.Run(context.Background(), []domain.RequestTarget{{Period: "2024-06-01", Category: "monthly"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3864.0, results[0].Value)
	assert.Equal(t, StateComputed, orch.State())
}

func TestFailedRunDoesNotMarkComputed(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "plafond.db")
	seedCache(t, cachePath)

	orch := New(nil, cachePath, zerolog.Nop())

	_, err := orch.Run(context.Background(), []domain.RequestTarget{{Period: "2024-06-01", Category: "quarterly"}})

	var noData *domain.NoApplicableDataError
	require.ErrorAs(t, err, &noData)
	assert.Equal(t, StateDownloaded, orch.State())
}

func TestProbeState(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "absent.db")
	assert.Equal(t, StateUninitialized, ProbeState(missing))

	seeded := filepath.Join(dir, "seeded.db")
	seedCache(t, seeded)
	assert.Equal(t, StateDownloaded, ProbeState(seeded))

	garbage := filepath.Join(dir, "garbage.db")
	require.NoError(t, os.WriteFile(garbage, []byte("not a database"), 0o644))
	assert.Equal(t, StateDownloaded, ProbeState(garbage))
}
