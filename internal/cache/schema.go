package cache

// SchemaVersion identifies the on-disk layout. Bump when the schema
// below changes shape; Open rejects caches written by a newer layout.
const SchemaVersion = "1"

// Schema is the single source of truth for the cache database layout.
// The cache is rebuilt from scratch on every successful download, so
// there are no migrations, only this definition.
const Schema = `
-- Generation metadata: one row per key, rewritten on every build.
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Ceiling reference records as published by the authority.
-- A (date, category) pair may appear under several source versions
-- when merged snapshots carry revisions; readers resolve ties by
-- taking the highest version.
CREATE TABLE IF NOT EXISTS ceiling_records (
    effective_date TEXT NOT NULL CHECK (length(effective_date) = 10),
    category       TEXT NOT NULL CHECK (category <> ''),
    value          REAL NOT NULL CHECK (value > 0),
    source_version TEXT NOT NULL CHECK (source_version <> ''),
    PRIMARY KEY (effective_date, category, source_version)
);

CREATE INDEX IF NOT EXISTS idx_ceiling_records_lookup
    ON ceiling_records (category, effective_date);

-- Pension distribution bands, ordered by position as published.
CREATE TABLE IF NOT EXISTS distribution_bands (
    position   INTEGER PRIMARY KEY,
    label      TEXT NOT NULL CHECK (label <> ''),
    percentage REAL NOT NULL CHECK (percentage >= 0)
);
`

// Meta keys written by the builder and read back by Info.
const (
	metaSchemaVersion   = "schema_version"
	metaGenerationID    = "generation_id"
	metaSourceVersion   = "source_version"
	metaFetchedAt       = "fetched_at"
	metaPayloadSHA256   = "payload_sha256"
	metaSourceURL       = "source_url"
	metaTotalPensioners = "total_pensioners"
)
