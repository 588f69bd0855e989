package reliability

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"plafond/internal/cache"
	"plafond/internal/domain"
	"plafond/internal/sink"
)

// snapshotMagic identifies a snapshot archive. The trailing digit is
// the archive format version.
const snapshotMagic = "PLFSNAP1"

const checksumSize = sha256.Size

// Snapshot is the portable form of one cache generation. Restoring it
// produces a byte-for-byte equivalent cache: same generation ID, same
// records, same provenance.
type Snapshot struct {
	SchemaVersion string    `msgpack:"schema_version"`
	GenerationID  string    `msgpack:"generation_id"`
	SourceVersion string    `msgpack:"source_version"`
	SourceURL     string    `msgpack:"source_url"`
	FetchedAt     time.Time `msgpack:"fetched_at"`
	PayloadSHA256 string    `msgpack:"payload_sha256"`
	ExportedAt    time.Time `msgpack:"exported_at"`

	Records      []domain.SourceRecord `msgpack:"records"`
	Distribution *domain.Distribution  `msgpack:"distribution,omitempty"`
}

// SnapshotService exports the live cache to snapshot archives and
// restores archives back into a live cache.
type SnapshotService struct {
	builder *cache.Builder
	writer  *sink.Writer
	s3      *S3Client
	log     zerolog.Logger
}

// NewSnapshotService creates the service. The S3 client may be nil;
// s3:// sources and destinations then fail with a storage error.
func NewSnapshotService(builder *cache.Builder, writer *sink.Writer, s3 *S3Client, log zerolog.Logger) *SnapshotService {
	return &SnapshotService{
		builder: builder,
		writer:  writer,
		s3:      s3,
		log:     log.With().Str("component", "snapshot").Logger(),
	}
}

// Export reads the cache at cachePath and writes a snapshot archive to
// dest. The cache must exist.
func (s *SnapshotService) Export(ctx context.Context, cachePath string, dest sink.Destination) (*Snapshot, error) {
	store, err := cache.Open(cachePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	info, err := store.Info(ctx)
	if err != nil {
		return nil, err
	}
	records, err := store.Records(ctx)
	if err != nil {
		return nil, err
	}
	dist, err := store.Distribution(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		SchemaVersion: info.SchemaVersion,
		GenerationID:  info.GenerationID,
		SourceVersion: info.SourceVersion,
		SourceURL:     info.SourceURL,
		FetchedAt:     info.FetchedAt,
		PayloadSHA256: info.PayloadSHA256,
		ExportedAt:    time.Now().UTC(),
		Records:       records,
		Distribution:  dist,
	}

	data, err := encodeArchive(snap)
	if err != nil {
		return nil, err
	}
	if err := s.writer.Write(ctx, dest, data); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("generation", snap.GenerationID).
		Str("source_version", snap.SourceVersion).
		Int("records", len(snap.Records)).
		Str("destination", dest.String()).
		Int("bytes", len(data)).
		Msg("Snapshot exported")
	return snap, nil
}

// Restore reads a snapshot archive from source (a local path or an
// s3:// URI) and rebuilds the cache at cachePath from it. The write is
// atomic: a failed restore leaves the existing cache untouched.
func (s *SnapshotService) Restore(ctx context.Context, source, cachePath string) (*Snapshot, error) {
	data, err := s.readSource(ctx, source)
	if err != nil {
		return nil, err
	}

	snap, err := decodeArchive(data)
	if err != nil {
		return nil, err
	}
	if len(snap.Records) == 0 {
		return nil, &domain.ValidationError{Field: "snapshot", Message: "archive holds no ceiling records"}
	}
	if snap.SchemaVersion != cache.SchemaVersion {
		return nil, &domain.ValidationError{
			Field:   "snapshot",
			Message: fmt.Sprintf("archive schema version %q does not match %q", snap.SchemaVersion, cache.SchemaVersion),
		}
	}

	content := &cache.Content{
		GenerationID:  snap.GenerationID,
		SourceVersion: snap.SourceVersion,
		SourceURL:     snap.SourceURL,
		FetchedAt:     snap.FetchedAt,
		PayloadSHA256: snap.PayloadSHA256,
		Records:       snap.Records,
		Distribution:  snap.Distribution,
	}
	if err := s.builder.Write(ctx, cachePath, content); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("generation", snap.GenerationID).
		Str("source_version", snap.SourceVersion).
		Int("records", len(snap.Records)).
		Str("source", source).
		Msg("Snapshot restored")
	return snap, nil
}

func (s *SnapshotService) readSource(ctx context.Context, source string) ([]byte, error) {
	dest, err := sink.ParseDestination(source)
	if err != nil {
		return nil, err
	}

	switch dest.Kind {
	case sink.DestS3:
		if s.s3 == nil {
			return nil, &domain.StorageError{
				Op:   "download",
				Path: source,
				Err:  fmt.Errorf("no S3 credentials configured (set PLAFOND_S3_*)"),
			}
		}
		data, err := s.s3.Download(ctx, dest.Bucket, dest.Key)
		if err != nil {
			return nil, &domain.StorageError{Op: "download", Path: source, Err: err}
		}
		return data, nil
	case sink.DestFile:
		data, err := os.ReadFile(dest.Path)
		if err != nil {
			return nil, &domain.StorageError{Op: "read", Path: dest.Path, Err: err}
		}
		return data, nil
	default:
		return nil, &domain.StorageError{
			Op:   "read",
			Path: source,
			Err:  fmt.Errorf("snapshot source %q must be a file path or s3:// URI", source),
		}
	}
}

// encodeArchive frames the msgpack body with a magic string and a
// SHA-256 of the body so corruption is caught before any decode.
func encodeArchive(snap *Snapshot) ([]byte, error) {
	body, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	sum := sha256.Sum256(body)
	out := make([]byte, 0, len(snapshotMagic)+checksumSize+len(body))
	out = append(out, snapshotMagic...)
	out = append(out, sum[:]...)
	out = append(out, body...)
	return out, nil
}

func decodeArchive(data []byte) (*Snapshot, error) {
	headerSize := len(snapshotMagic) + checksumSize
	if len(data) < headerSize {
		return nil, &domain.ValidationError{Field: "snapshot", Message: "archive is truncated"}
	}
	if string(data[:len(snapshotMagic)]) != snapshotMagic {
		return nil, &domain.ValidationError{Field: "snapshot", Message: "not a snapshot archive"}
	}

	want := data[len(snapshotMagic):headerSize]
	body := data[headerSize:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], want) {
		return nil, &domain.ValidationError{Field: "snapshot", Message: "archive checksum mismatch"}
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(body, &snap); err != nil {
		return nil, &domain.ValidationError{Field: "snapshot", Message: fmt.Sprintf("archive body is not decodable: %v", err)}
	}
	return &snap, nil
}
