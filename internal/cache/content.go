// Package cache persists validated reference data in a local SQLite
// database and serves it back to the compute stages. The live cache is
// only ever replaced wholesale: a builder seeds a staging file and
// renames it over the previous generation, so readers always see a
// complete dataset or none at all.
package cache

import (
	"time"

	"plafond/internal/domain"
)

// Content is one complete, validated generation of reference data,
// ready to be persisted. The acquirer produces it; the builder writes
// it verbatim.
type Content struct {
	GenerationID  string
	SourceVersion string
	SourceURL     string
	FetchedAt     time.Time
	PayloadSHA256 string

	Records      []domain.SourceRecord
	Distribution *domain.Distribution // nil when the payload carries no bands
}

// Info describes the generation currently held in a cache file.
type Info struct {
	SchemaVersion string
	GenerationID  string
	SourceVersion string
	SourceURL     string
	FetchedAt     time.Time
	PayloadSHA256 string

	RecordCount int
	BandCount   int
	SizeBytes   int64
}
