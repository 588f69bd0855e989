package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"plafond/internal/database"
	"plafond/internal/domain"
)

// Builder seeds staging cache files and swaps them over the live cache.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new cache builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: log.With().Str("component", "cache_builder").Logger(),
	}
}

// Write persists content as the new live cache at path.
//
// The content is seeded into a staging file next to the target and
// renamed into place only once fully written, so a failure at any
// point leaves the previous cache untouched.
func (b *Builder) Write(ctx context.Context, path string, content *Content) error {
	if content == nil || content.GenerationID == "" {
		return &domain.StorageError{Op: "write", Path: path, Err: fmt.Errorf("empty cache content")}
	}

	startTime := time.Now()
	stagingPath := fmt.Sprintf("%s.staging-%s", path, content.GenerationID)
	defer removeSidecars(stagingPath)
	defer os.Remove(stagingPath)

	if err := b.seed(ctx, stagingPath, content); err != nil {
		return err
	}

	// A stale WAL left over from the previous generation must not be
	// replayed into the file we are about to rename in.
	removeSidecars(path)

	if err := os.Rename(stagingPath, path); err != nil {
		return &domain.StorageError{Op: "swap", Path: path, Err: err}
	}

	b.log.Info().
		Str("generation", content.GenerationID).
		Str("source_version", content.SourceVersion).
		Int("records", len(content.Records)).
		Int("bands", bandCount(content)).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Cache generation written")

	return nil
}

// seed builds the staging database file and leaves it checkpointed and
// closed, ready to be renamed.
func (b *Builder) seed(ctx context.Context, stagingPath string, content *Content) error {
	db, err := database.New(database.Config{
		Path:    stagingPath,
		Profile: database.ProfileStaging,
		Name:    "staging",
	})
	if err != nil {
		return &domain.StorageError{Op: "open-staging", Path: stagingPath, Err: err}
	}
	defer db.Close()

	if err := db.ApplySchema(Schema); err != nil {
		return &domain.StorageError{Op: "apply-schema", Path: stagingPath, Err: err}
	}

	err = database.WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if err := insertMeta(ctx, tx, content); err != nil {
			return err
		}
		if err := insertRecords(ctx, tx, content.Records); err != nil {
			return err
		}
		if content.Distribution != nil {
			if err := insertBands(ctx, tx, content.Distribution.Bands); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &domain.StorageError{Op: "seed", Path: stagingPath, Err: err}
	}

	// Fold the WAL back into the main file so the rename moves a
	// single, complete database.
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		return &domain.StorageError{Op: "checkpoint", Path: stagingPath, Err: err}
	}
	if err := db.Close(); err != nil {
		return &domain.StorageError{Op: "close-staging", Path: stagingPath, Err: err}
	}

	return nil
}

func insertMeta(ctx context.Context, tx *sql.Tx, content *Content) error {
	entries := map[string]string{
		metaSchemaVersion: SchemaVersion,
		metaGenerationID:  content.GenerationID,
		metaSourceVersion: content.SourceVersion,
		metaSourceURL:     content.SourceURL,
		metaFetchedAt:     content.FetchedAt.UTC().Format(time.RFC3339),
		metaPayloadSHA256: content.PayloadSHA256,
	}
	if content.Distribution != nil {
		entries[metaTotalPensioners] = strconv.FormatInt(content.Distribution.TotalPensioners, 10)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare meta insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range entries {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("failed to insert meta %s: %w", key, err)
		}
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, records []domain.SourceRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ceiling_records (effective_date, category, value, source_version)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.EffectiveDate, r.Category, r.Value, r.SourceVersion); err != nil {
			return fmt.Errorf("failed to insert record %s/%s: %w", r.EffectiveDate, r.Category, err)
		}
	}
	return nil
}

func insertBands(ctx context.Context, tx *sql.Tx, bands []domain.DistributionBand) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO distribution_bands (position, label, percentage)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare band insert: %w", err)
	}
	defer stmt.Close()

	for _, band := range bands {
		if _, err := stmt.ExecContext(ctx, band.Position, band.Label, band.Percentage); err != nil {
			return fmt.Errorf("failed to insert band %d: %w", band.Position, err)
		}
	}
	return nil
}

func bandCount(content *Content) int {
	if content.Distribution == nil {
		return 0
	}
	return len(content.Distribution.Bands)
}

// removeSidecars deletes the -wal and -shm files that accompany a
// SQLite database in WAL mode.
func removeSidecars(path string) {
	os.Remove(path + "-wal")
	os.Remove(path + "-shm")
}
