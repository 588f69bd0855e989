package analyze

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"plafond/internal/domain"
)

// DistributionReader is the cache surface the analysis needs.
// *cache.Store satisfies it.
type DistributionReader interface {
	Distribution(ctx context.Context) (*domain.Distribution, error)
}

// CeilingSource resolves the applicable ceiling for a target; the
// compute service satisfies it.
type CeilingSource interface {
	Run(ctx context.Context, targets []domain.RequestTarget) ([]domain.CeilingResult, error)
}

// Params control one analysis run.
type Params struct {
	Period   string
	Category string // ceiling category to cap with; monthly is the conventional basis

	// CeilingOverride, when positive, caps with the given amount
	// instead of looking up the cached ceiling.
	CeilingOverride float64

	// OpenEndedAverage is the assumed average pension of the final,
	// open-ended band.
	OpenEndedAverage float64

	// TotalPensionersOverride, when positive, replaces the cached
	// pensioner total.
	TotalPensionersOverride int64
}

// Service runs capping analyses over the cached distribution.
type Service struct {
	store    DistributionReader
	ceilings CeilingSource
	log      zerolog.Logger
}

// NewService creates the analysis service.
func NewService(store DistributionReader, ceilings CeilingSource, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		ceilings: ceilings,
		log:      log.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze applies a ceiling to the cached pension distribution.
//
// The report is fully determined by the cache content and params:
// repeated runs yield identical reports.
func (s *Service) Analyze(ctx context.Context, params Params) (*domain.AnalysisReport, error) {
	dist, err := s.store.Distribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read distribution: %w", err)
	}
	if dist == nil {
		return nil, &domain.NoApplicableDataError{Period: params.Period, Category: "distribution"}
	}

	total := float64(dist.TotalPensioners)
	if params.TotalPensionersOverride > 0 {
		total = float64(params.TotalPensionersOverride)
	}
	if total <= 0 {
		return nil, &domain.ComputationError{Reason: "pensioner total must be positive"}
	}

	category := params.Category
	if category == "" {
		category = "monthly"
	}

	ceiling, basis, err := s.resolveCeiling(ctx, params, category)
	if err != nil {
		return nil, err
	}

	averages, err := deriveAverages(dist.Bands, params.OpenEndedAverage)
	if err != nil {
		return nil, err
	}

	report := &domain.AnalysisReport{
		Period:          params.Period,
		Category:        category,
		Ceiling:         ceiling,
		CeilingBasis:    basis,
		TotalPensioners: int64(total),
		Bands:           make([]domain.BandReport, len(dist.Bands)),
	}

	weights := make([]float64, len(dist.Bands))
	var pensionersAbove float64

	for i, band := range dist.Bands {
		if band.Percentage < 0 {
			return nil, &domain.ComputationError{
				Reason: fmt.Sprintf("band %q has negative percentage %v", band.Label, band.Percentage),
			}
		}

		pensioners := band.Percentage / 100 * total
		excess := averages[i] - ceiling
		if excess < 0 {
			excess = 0
		}

		report.Bands[i] = domain.BandReport{
			Position:       band.Position,
			Label:          band.Label,
			Percentage:     band.Percentage,
			AveragePension: averages[i],
			Pensioners:     pensioners,
			MonthlyExcess:  excess,
			CappedAverage:  averages[i] - excess,
		}

		weights[i] = pensioners
		report.SavingsMonthly += excess * pensioners
		report.PensionMassMonthly += averages[i] * pensioners
		if averages[i] > ceiling {
			pensionersAbove += pensioners
		}
	}

	report.SavingsAnnual = 12 * report.SavingsMonthly
	if report.PensionMassMonthly > 0 {
		report.SavingsShare = report.SavingsMonthly / report.PensionMassMonthly
	}
	report.ShareAboveCeiling = pensionersAbove / total

	report.WeightedMeanPension = stat.Mean(averages, weights)
	report.WeightedMedianPension = weightedMedian(averages, weights)

	s.log.Info().
		Str("period", report.Period).
		Float64("ceiling", report.Ceiling).
		Float64("savings_monthly", report.SavingsMonthly).
		Float64("share_above", report.ShareAboveCeiling).
		Msg("Capping analysis complete")

	return report, nil
}

// resolveCeiling picks the capping amount: an explicit override, or the
// applicable cached ceiling for (period, category).
func (s *Service) resolveCeiling(ctx context.Context, params Params, category string) (float64, []domain.BasisRecord, error) {
	if params.CeilingOverride > 0 {
		return params.CeilingOverride, nil, nil
	}
	if params.CeilingOverride < 0 {
		return 0, nil, &domain.ComputationError{
			Reason: fmt.Sprintf("ceiling override must be positive, got %v", params.CeilingOverride),
		}
	}

	results, err := s.ceilings.Run(ctx, []domain.RequestTarget{{Period: params.Period, Category: category}})
	if err != nil {
		return 0, nil, err
	}
	return results[0].Value, results[0].Basis, nil
}

// weightedMedian is the 0.5 empirical quantile of values weighted by
// pensioner counts.
func weightedMedian(values, weights []float64) float64 {
	xs := append([]float64(nil), values...)
	ws := append([]float64(nil), weights...)
	stat.SortWeighted(xs, ws)
	return stat.Quantile(0.5, stat.Empirical, xs, ws)
}
