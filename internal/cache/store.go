package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"plafond/internal/database"
	"plafond/internal/domain"
)

// Store reads one generation of reference data from a live cache file.
type Store struct {
	db   *sql.DB
	path string

	// owned is set when Open created the connection; Close releases it.
	owned *database.DB
}

// NewStore wraps an existing connection. Used by tests that seed
// their own in-memory database.
func NewStore(db *sql.DB, path string) *Store {
	return &Store{db: db, path: path}
}

// Open opens the live cache at path for reading.
//
// A path that does not exist or holds an empty file yields
// *domain.CacheMissingError; a file that exists but cannot be read as
// a cache yields *domain.StorageError.
func Open(path string) (*Store, error) {
	fileInfo, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &domain.CacheMissingError{Path: path}
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "stat", Path: path, Err: err}
	}
	if fileInfo.Size() == 0 {
		return nil, &domain.CacheMissingError{Path: path, Reason: "cache file is empty"}
	}

	db, err := database.New(database.Config{
		Path:     path,
		Profile:  database.ProfileReference,
		Name:     "cache",
		ReadOnly: true,
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Path: path, Err: err}
	}

	store := NewStore(db.Conn(), db.Path())
	store.owned = db

	if err := store.checkSchemaVersion(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the underlying connection if this store owns it.
func (s *Store) Close() error {
	if s.owned != nil {
		return s.owned.Close()
	}
	return nil
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return s.path
}

// Verify runs SQLite's integrity check over the cache file. Cache
// corruption cannot be repaired in place; the fix is a fresh download
// or a snapshot restore.
func (s *Store) Verify(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return &domain.StorageError{Op: "verify", Path: s.path, Err: err}
	}
	if result != "ok" {
		return &domain.StorageError{Op: "verify", Path: s.path,
			Err: fmt.Errorf("integrity check returned %q", result)}
	}
	return nil
}

func (s *Store) checkSchemaVersion(ctx context.Context) error {
	var version string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", metaSchemaVersion).Scan(&version)
	if err != nil {
		return &domain.StorageError{Op: "schema-version", Path: s.path,
			Err: fmt.Errorf("not a recognized cache file: %w", err)}
	}
	if version != SchemaVersion {
		return &domain.StorageError{Op: "schema-version", Path: s.path,
			Err: fmt.Errorf("cache layout %s is not supported (want %s)", version, SchemaVersion)}
	}
	return nil
}

// Records returns every ceiling record in the cache, ordered by
// effective date, category and source version so repeated reads are
// byte-for-byte identical.
func (s *Store) Records(ctx context.Context) ([]domain.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT effective_date, category, value, source_version
		FROM ceiling_records
		ORDER BY effective_date, category, source_version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ApplicableCandidates returns the records for a category whose
// effective date does not exceed the period. Callers resolve the
// winner; ISO dates compare correctly as text.
func (s *Store) ApplicableCandidates(ctx context.Context, category, period string) ([]domain.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT effective_date, category, value, source_version
		FROM ceiling_records
		WHERE category = ? AND effective_date <= ?
		ORDER BY effective_date, source_version`,
		category, period)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates for %s: %w", category, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Categories returns the distinct ceiling categories present.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT category FROM ceiling_records ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Distribution returns the pension distribution held in the cache.
// Returns nil, nil when the generation carries no bands.
func (s *Store) Distribution(ctx context.Context) (*domain.Distribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, label, percentage
		FROM distribution_bands
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	var bands []domain.DistributionBand
	for rows.Next() {
		var band domain.DistributionBand
		if err := rows.Scan(&band.Position, &band.Label, &band.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan band: %w", err)
		}
		bands = append(bands, band)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bands: %w", err)
	}
	if len(bands) == 0 {
		return nil, nil
	}

	dist := &domain.Distribution{Bands: bands}

	var total string
	err = s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", metaTotalPensioners).Scan(&total)
	if err == sql.ErrNoRows {
		return dist, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read total pensioners: %w", err)
	}
	dist.TotalPensioners, err = strconv.ParseInt(total, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed total pensioners %q: %w", total, err)
	}

	return dist, nil
}

// Info describes the generation currently held in the cache.
func (s *Store) Info(ctx context.Context) (*Info, error) {
	meta, err := s.readMeta(ctx)
	if err != nil {
		return nil, err
	}

	info := &Info{
		SchemaVersion: meta[metaSchemaVersion],
		GenerationID:  meta[metaGenerationID],
		SourceVersion: meta[metaSourceVersion],
		SourceURL:     meta[metaSourceURL],
		PayloadSHA256: meta[metaPayloadSHA256],
	}

	if raw, ok := meta[metaFetchedAt]; ok {
		fetchedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("malformed fetched_at %q: %w", raw, err)
		}
		info.FetchedAt = fetchedAt
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ceiling_records").Scan(&info.RecordCount); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM distribution_bands").Scan(&info.BandCount); err != nil {
		return nil, fmt.Errorf("failed to count bands: %w", err)
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		info.SizeBytes = fileInfo.Size()
	}

	return info, nil
}

func (s *Store) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("failed to query meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan meta: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]domain.SourceRecord, error) {
	var records []domain.SourceRecord
	for rows.Next() {
		var r domain.SourceRecord
		if err := rows.Scan(&r.EffectiveDate, &r.Category, &r.Value, &r.SourceVersion); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
