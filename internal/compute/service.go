// Package compute implements the ceiling computation stage: select the
// applicable record for each requested (period, category) and derive
// its ceiling result.
package compute

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"plafond/internal/cache"
	"plafond/internal/domain"
)

// CacheReader is the read surface the computer needs. *cache.Store
// satisfies it.
type CacheReader interface {
	Path() string
	Info(ctx context.Context) (*cache.Info, error)
	ApplicableCandidates(ctx context.Context, category, period string) ([]domain.SourceRecord, error)
}

// Service is the ceiling computation stage. It never mutates the
// cache; the connection it reads from is opened in read-only mode.
type Service struct {
	store CacheReader
	log   zerolog.Logger
}

// NewService creates the computation service.
func NewService(store CacheReader, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "computer").Logger(),
	}
}

// Run computes one ceiling result per target.
//
// Targets are evaluated in the order given (callers normalize them
// first), and an unchanged cache always yields the same results. The
// run fails as a whole on the first target with no applicable record;
// partial results are never returned.
func (s *Service) Run(ctx context.Context, targets []domain.RequestTarget) ([]domain.CeilingResult, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets requested")
	}

	info, err := s.store.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache metadata: %w", err)
	}
	if info.RecordCount == 0 {
		return nil, &domain.CacheMissingError{Path: s.store.Path(), Reason: "cache holds no ceiling records"}
	}

	s.log.Debug().
		Str("generation", info.GenerationID).
		Str("source_version", info.SourceVersion).
		Int("targets", len(targets)).
		Msg("Computing ceilings")

	results := make([]domain.CeilingResult, 0, len(targets))
	for _, target := range targets {
		result, err := s.computeOne(ctx, target)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	s.log.Info().
		Int("results", len(results)).
		Str("generation", info.GenerationID).
		Msg("Computation complete")

	return results, nil
}

func (s *Service) computeOne(ctx context.Context, target domain.RequestTarget) (domain.CeilingResult, error) {
	var result domain.CeilingResult

	candidates, err := s.store.ApplicableCandidates(ctx, target.Category, target.Period)
	if err != nil {
		return result, fmt.Errorf("failed to load candidates for %s/%s: %w", target.Period, target.Category, err)
	}
	if len(candidates) == 0 {
		return result, &domain.NoApplicableDataError{Period: target.Period, Category: target.Category}
	}

	record := selectApplicable(candidates)
	if record.Value <= 0 {
		return result, &domain.ComputationError{
			Reason: fmt.Sprintf("record %s/%s@%s has non-positive value %v",
				record.EffectiveDate, record.Category, record.SourceVersion, record.Value),
		}
	}

	return domain.CeilingResult{
		Period:   target.Period,
		Category: target.Category,
		Value:    record.Value,
		Basis: []domain.BasisRecord{{
			EffectiveDate: record.EffectiveDate,
			Category:      record.Category,
			SourceVersion: record.SourceVersion,
		}},
	}, nil
}

// selectApplicable picks the winning record among candidates that are
// already known to be applicable (effective date <= period): the most
// recent effective date, ties resolved by the higher source version.
func selectApplicable(candidates []domain.SourceRecord) domain.SourceRecord {
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.EffectiveDate > best.EffectiveDate:
			best = c
		case c.EffectiveDate == best.EffectiveDate &&
			domain.CompareVersions(c.SourceVersion, best.SourceVersion) > 0:
			best = c
		}
	}
	return best
}
