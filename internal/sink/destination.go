package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"plafond/internal/domain"
)

// DestKind is where encoded output goes.
type DestKind int

const (
	DestStdout DestKind = iota
	DestFile
	DestS3
)

// Destination is a parsed output target.
type Destination struct {
	Kind   DestKind
	Path   string // file path for DestFile
	Bucket string // DestS3
	Key    string // DestS3
}

// ParseDestination interprets an --output value: "-" is stdout,
// "s3://bucket/key" is object storage, anything else is a file path.
func ParseDestination(s string) (Destination, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "-":
		return Destination{Kind: DestStdout}, nil

	case strings.HasPrefix(s, "s3://"):
		rest := strings.TrimPrefix(s, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Destination{}, fmt.Errorf("s3 destination %q must look like s3://bucket/key", s)
		}
		return Destination{Kind: DestS3, Bucket: bucket, Key: key}, nil

	default:
		return Destination{Kind: DestFile, Path: s}, nil
	}
}

// String renders the destination the way the user wrote it.
func (d Destination) String() string {
	switch d.Kind {
	case DestFile:
		return d.Path
	case DestS3:
		return "s3://" + d.Bucket + "/" + d.Key
	default:
		return "-"
	}
}

// Uploader sends a payload to object storage. The reliability S3
// client satisfies it; nil means no S3 destination is configured.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
}

// Writer delivers encoded output to a destination.
type Writer struct {
	stdout   io.Writer
	uploader Uploader
	log      zerolog.Logger
}

// NewWriter creates a destination writer. uploader may be nil when no
// S3 credentials are configured; S3 destinations then fail cleanly.
func NewWriter(uploader Uploader, log zerolog.Logger) *Writer {
	return &Writer{
		stdout:   os.Stdout,
		uploader: uploader,
		log:      log.With().Str("component", "sink").Logger(),
	}
}

// Write sends data to dest. File writes are atomic (temp file in the
// same directory, then rename) so a crashed run never leaves a partial
// result behind.
func (w *Writer) Write(ctx context.Context, dest Destination, data []byte) error {
	switch dest.Kind {
	case DestStdout:
		if _, err := w.stdout.Write(data); err != nil {
			return &domain.StorageError{Op: "write", Path: "stdout", Err: err}
		}
		return nil

	case DestFile:
		return w.writeFile(dest.Path, data)

	case DestS3:
		if w.uploader == nil {
			return &domain.StorageError{Op: "upload", Path: dest.String(),
				Err: fmt.Errorf("no S3 credentials configured (set PLAFOND_S3_*)")}
		}
		if err := w.uploader.Upload(ctx, dest.Bucket, dest.Key, bytes.NewReader(data)); err != nil {
			return &domain.StorageError{Op: "upload", Path: dest.String(), Err: err}
		}
		w.log.Info().Str("destination", dest.String()).Int("bytes", len(data)).Msg("Result uploaded")
		return nil

	default:
		return &domain.StorageError{Op: "write", Path: dest.String(),
			Err: fmt.Errorf("unknown destination kind %d", dest.Kind)}
	}
}

func (w *Writer) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.StorageError{Op: "mkdir", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &domain.StorageError{Op: "sync", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.StorageError{Op: "close", Path: path, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return &domain.StorageError{Op: "rename", Path: path, Err: err}
	}

	w.log.Info().Str("destination", path).Int("bytes", len(data)).Msg("Result written")
	return nil
}
