package cache

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return db
}

func seedTestData(t *testing.T, db *sql.DB) {
	_, err := db.Exec(`
		INSERT INTO meta (key, value) VALUES
			('schema_version', '1'),
			('generation_id', 'gen-1'),
			('source_version', '2024-01-15'),
			('fetched_at', '2024-01-15T06:00:00Z'),
			('payload_sha256', 'abc123'),
			('total_pensioners', '14900000');

		INSERT INTO ceiling_records (effective_date, category, value, source_version) VALUES
			('2023-01-01', 'monthly', 100, '2024-01-15'),
			('2024-01-01', 'monthly', 110, '2024-01-15'),
			('2023-01-01', 'annual', 1200, '2024-01-15');

		INSERT INTO distribution_bands (position, label, percentage) VALUES
			(0, 'Moins de 500 euros', 10.5),
			(1, 'De 500 à 1000 euros', 25.0),
			(2, 'Plus de 4000 euros', 3.2);
	`)
	require.NoError(t, err)
}

func TestRecordsOrdering(t *testing.T) {
	db := setupTestDB(t)
	seedTestData(t, db)
	store := NewStore(db, ":memory:")

	records, err := store.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Ordered by date then category
	assert.Equal(t, "annual", records[0].Category)
	assert.Equal(t, "2023-01-01", records[0].EffectiveDate)
	assert.Equal(t, "monthly", records[1].Category)
	assert.Equal(t, "2024-01-01", records[2].EffectiveDate)
}

func TestApplicableCandidates(t *testing.T) {
	db := setupTestDB(t)
	seedTestData(t, db)
	store := NewStore(db, ":memory:")
	ctx := context.Background()

	tests := []struct {
		name     string
		category string
		period   string
		want     int
	}{
		{"mid-year excludes later record", "monthly", "2023-06-01", 1},
		{"boundary date is inclusive", "monthly", "2024-01-01", 2},
		{"before first record", "monthly", "2022-12-31", 0},
		{"unknown category", "quarterly", "2024-01-01", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := store.ApplicableCandidates(ctx, tt.category, tt.period)
			require.NoError(t, err)
			assert.Len(t, candidates, tt.want)
		})
	}
}

func TestDistribution(t *testing.T) {
	db := setupTestDB(t)
	seedTestData(t, db)
	store := NewStore(db, ":memory:")

	dist, err := store.Distribution(context.Background())
	require.NoError(t, err)
	require.NotNil(t, dist)

	assert.Equal(t, int64(14_900_000), dist.TotalPensioners)
	require.Len(t, dist.Bands, 3)
	assert.Equal(t, "Moins de 500 euros", dist.Bands[0].Label)
	assert.Equal(t, 25.0, dist.Bands[1].Percentage)
}

func TestDistributionAbsent(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db, ":memory:")

	dist, err := store.Distribution(context.Background())
	require.NoError(t, err)
	assert.Nil(t, dist, "no bands should yield a nil distribution")
}

func TestCategories(t *testing.T) {
	db := setupTestDB(t)
	seedTestData(t, db)
	store := NewStore(db, ":memory:")

	categories, err := store.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"annual", "monthly"}, categories)
}

func TestInfo(t *testing.T) {
	db := setupTestDB(t)
	seedTestData(t, db)
	store := NewStore(db, ":memory:")

	info, err := store.Info(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "gen-1", info.GenerationID)
	assert.Equal(t, "2024-01-15", info.SourceVersion)
	assert.Equal(t, "abc123", info.PayloadSHA256)
	assert.Equal(t, 3, info.RecordCount)
	assert.Equal(t, 3, info.BandCount)
	assert.Equal(t, 2024, info.FetchedAt.Year())
}

func TestSchemaRejectsInvalidRows(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Exec(`INSERT INTO ceiling_records (effective_date, category, value, source_version)
		VALUES ('2023-01-01', 'monthly', -5, 'v1')`)
	assert.Error(t, err, "non-positive values must be rejected by the schema")

	_, err = db.Exec(`INSERT INTO ceiling_records (effective_date, category, value, source_version)
		VALUES ('2023-1-1', 'monthly', 5, 'v1')`)
	assert.Error(t, err, "dates must be normalized to 10 characters")
}

func TestVerify(t *testing.T) {
	db := setupTestDB(t)
	seedTestData(t, db)
	store := NewStore(db, ":memory:")

	assert.NoError(t, store.Verify(context.Background()))
}
