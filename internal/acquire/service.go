package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"plafond/internal/cache"
	"plafond/internal/domain"
)

// Fetcher retrieves the raw dataset payload from the authority.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Service is the data acquisition stage.
type Service struct {
	fetcher   Fetcher
	builder   *cache.Builder
	cachePath string
	sourceURL string
	log       zerolog.Logger
}

// NewService creates the acquisition service.
func NewService(fetcher Fetcher, builder *cache.Builder, cachePath, sourceURL string, log zerolog.Logger) *Service {
	return &Service{
		fetcher:   fetcher,
		builder:   builder,
		cachePath: cachePath,
		sourceURL: sourceURL,
		log:       log.With().Str("component", "acquirer").Logger(),
	}
}

// Download fetches, validates and persists one dataset generation.
//
// Re-running against an unchanged upstream is a no-op: the payload
// hash is compared with the live cache and an identical payload
// reports Unchanged without touching the file. Any failure before the
// final swap leaves the previous cache generation intact, so Download
// is always safe to retry.
func (s *Service) Download(ctx context.Context) (domain.CacheWriteOutcome, error) {
	var outcome domain.CacheWriteOutcome

	payload, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return outcome, err
	}

	digest := sha256.Sum256(payload)
	payloadSHA := hex.EncodeToString(digest[:])

	if existing := s.currentInfo(ctx); existing != nil && existing.PayloadSHA256 == payloadSHA {
		s.log.Info().
			Str("generation", existing.GenerationID).
			Str("sha256", payloadSHA).
			Msg("Upstream payload unchanged, keeping current cache")
		return domain.CacheWriteOutcome{
			GenerationID:  existing.GenerationID,
			SourceVersion: existing.SourceVersion,
			RecordCount:   existing.RecordCount,
			BandCount:     existing.BandCount,
			PayloadSHA256: payloadSHA,
			Unchanged:     true,
		}, nil
	}

	env, err := parsePayload(payload)
	if err != nil {
		return outcome, err
	}
	if err := validatePayload(env); err != nil {
		return outcome, err
	}

	content := buildContent(env, uuid.NewString(), s.sourceURL, payloadSHA, time.Now().UTC())
	if err := s.builder.Write(ctx, s.cachePath, content); err != nil {
		return outcome, err
	}

	outcome = domain.CacheWriteOutcome{
		GenerationID:  content.GenerationID,
		SourceVersion: content.SourceVersion,
		RecordCount:   len(content.Records),
		BandCount:     bandCount(content),
		PayloadSHA256: payloadSHA,
	}

	s.log.Info().
		Str("generation", outcome.GenerationID).
		Str("source_version", outcome.SourceVersion).
		Int("records", outcome.RecordCount).
		Int("bands", outcome.BandCount).
		Msg("New cache generation acquired")

	return outcome, nil
}

// currentInfo reads the live cache's generation metadata. A missing
// cache is normal (first run); an unreadable one is logged and treated
// as absent so a fresh download can replace it.
func (s *Service) currentInfo(ctx context.Context) *cache.Info {
	store, err := cache.Open(s.cachePath)
	if err != nil {
		var missing *domain.CacheMissingError
		if !errors.As(err, &missing) {
			s.log.Warn().Err(err).Msg("Existing cache unreadable, will replace it")
		}
		return nil
	}
	defer store.Close()

	info, err := store.Info(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Existing cache metadata unreadable, will replace it")
		return nil
	}
	return info
}

func bandCount(content *cache.Content) int {
	if content.Distribution == nil {
		return 0
	}
	return len(content.Distribution.Bands)
}
