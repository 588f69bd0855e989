package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plafond/internal/domain"
)

func testContent(generation, version string, value float64) *Content {
	return &Content{
		GenerationID:  generation,
		SourceVersion: version,
		SourceURL:     "https://example.org/ceilings.json",
		FetchedAt:     time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC),
		PayloadSHA256: "sha-" + generation,
		Records: []domain.SourceRecord{
			{EffectiveDate: "2023-01-01", Category: "monthly", Value: value, SourceVersion: version},
			{EffectiveDate: "2024-01-01", Category: "monthly", Value: value + 10, SourceVersion: version},
		},
		Distribution: &domain.Distribution{
			TotalPensioners: 14_900_000,
			Bands: []domain.DistributionBand{
				{Position: 0, Label: "Moins de 1000 euros", Percentage: 40},
				{Position: 1, Label: "Plus de 1000 euros", Percentage: 60},
			},
		},
	}
}

func TestWriteAndOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plafond.db")
	builder := NewBuilder(zerolog.Nop())

	err := builder.Write(context.Background(), path, testContent("gen-1", "2024-01-15", 100))
	require.NoError(t, err)

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 100.0, records[0].Value)

	dist, err := store.Distribution(context.Background())
	require.NoError(t, err)
	require.NotNil(t, dist)
	assert.Equal(t, int64(14_900_000), dist.TotalPensioners)

	info, err := store.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gen-1", info.GenerationID)
	assert.Equal(t, "sha-gen-1", info.PayloadSHA256)
	assert.Equal(t, 2, info.RecordCount)
}

func TestWriteReplacesPreviousGeneration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plafond.db")
	builder := NewBuilder(zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, builder.Write(ctx, path, testContent("gen-1", "2024-01-15", 100)))
	require.NoError(t, builder.Write(ctx, path, testContent("gen-2", "2024-02-15", 200)))

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	info, err := store.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gen-2", info.GenerationID)

	records, err := store.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2, "previous generation must be fully replaced")
	assert.Equal(t, 200.0, records[0].Value)
}

func TestWriteLeavesNoStagingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plafond.db")
	builder := NewBuilder(zerolog.Nop())

	require.NoError(t, builder.Write(context.Background(), path, testContent("gen-1", "2024-01-15", 100)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "plafond.db", entries[0].Name())
}

func TestOpenMissingCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plafond.db")

	_, err := Open(path)
	require.Error(t, err)

	var missing *domain.CacheMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, path, missing.Path)
}

func TestOpenEmptyCacheFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plafond.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)

	var missing *domain.CacheMissingError
	require.ErrorAs(t, err, &missing)
}

func TestOpenUnrecognizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plafond.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o644))

	_, err := Open(path)
	require.Error(t, err)

	var storage *domain.StorageError
	assert.ErrorAs(t, err, &storage)
}

func TestWriteRejectsEmptyContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plafond.db")
	builder := NewBuilder(zerolog.Nop())

	err := builder.Write(context.Background(), path, nil)

	var storage *domain.StorageError
	require.ErrorAs(t, err, &storage)
}
