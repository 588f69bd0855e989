// Package domain provides core domain models and types.
package domain

// SourceRecord is one regulatory ceiling data point as published by the
// upstream authority: the ceiling value that applies to a category from
// an effective date onward. Records are immutable once fetched.
type SourceRecord struct {
	EffectiveDate string  `json:"effective_date"` // YYYY-MM-DD
	Category      string  `json:"category"`       // e.g. "monthly", "annual", "daily"
	Value         float64 `json:"value"`          // EUR
	SourceVersion string  `json:"source_version"` // authority version, e.g. "2025-07-01.3"
}

// DistributionBand is one row of the authority's pension-amount
// distribution table: a labelled amount band and the share of pensioners
// whose gross pension falls inside it. The final band of the table is
// open-ended (no upper bound).
type DistributionBand struct {
	Position   int     `json:"position"` // ordering as published
	Label      string  `json:"label"`    // e.g. "de 300 à 600 euros"
	Percentage float64 `json:"percentage"`
}

// Distribution is the full pension-amount distribution for one fetch
// generation.
type Distribution struct {
	TotalPensioners int64              `json:"total_pensioners"`
	Bands           []DistributionBand `json:"bands"`
}

// BasisRecord identifies a SourceRecord that a result was derived from.
type BasisRecord struct {
	EffectiveDate string `json:"effective_date"`
	Category      string `json:"category"`
	SourceVersion string `json:"source_version"`
}

// CeilingResult is the ceiling derived for one requested (period,
// category) pair. Never mutated after creation.
type CeilingResult struct {
	Period   string        `json:"period"` // requested target date, YYYY-MM-DD
	Category string        `json:"category"`
	Value    float64       `json:"value"`
	Basis    []BasisRecord `json:"basis"`
}

// CacheWriteOutcome summarizes one Acquirer run.
type CacheWriteOutcome struct {
	GenerationID  string `json:"generation_id"`
	SourceVersion string `json:"source_version"`
	RecordCount   int    `json:"record_count"`
	BandCount     int    `json:"band_count"`
	PayloadSHA256 string `json:"payload_sha256"`
	// Unchanged is true when the upstream payload hashed identically to
	// the one already cached; the cache was left as-is.
	Unchanged bool `json:"unchanged"`
}

// BandReport is the per-band outcome of a capping analysis.
type BandReport struct {
	Position       int     `json:"position"`
	Label          string  `json:"label"`
	Percentage     float64 `json:"percentage"`
	AveragePension float64 `json:"average_pension"` // EUR/month, derived from the label
	Pensioners     float64 `json:"pensioners"`
	MonthlyExcess  float64 `json:"monthly_excess"` // EUR/month above the ceiling, per pensioner
	CappedAverage  float64 `json:"capped_average"` // EUR/month after applying the ceiling
}

// AnalysisReport is the result of applying a ceiling to the cached
// pension distribution: what a cap at Ceiling would save, and what the
// distribution looks like.
type AnalysisReport struct {
	Period          string        `json:"period"`
	Category        string        `json:"category"`
	Ceiling         float64       `json:"ceiling"`
	CeilingBasis    []BasisRecord `json:"ceiling_basis,omitempty"` // empty when the ceiling was overridden
	TotalPensioners int64         `json:"total_pensioners"`
	Bands           []BandReport  `json:"bands"`

	// Aggregates. Savings are the pension mass above the ceiling, i.e.
	// what capping every pension at Ceiling would free up.
	SavingsMonthly     float64 `json:"savings_monthly"` // EUR/month
	SavingsAnnual      float64 `json:"savings_annual"`  // EUR/year
	PensionMassMonthly float64 `json:"pension_mass_monthly"`
	SavingsShare       float64 `json:"savings_share"` // SavingsMonthly / PensionMassMonthly

	WeightedMeanPension   float64 `json:"weighted_mean_pension"`
	WeightedMedianPension float64 `json:"weighted_median_pension"`
	// ShareAboveCeiling is the share of pensioners in bands whose average
	// pension exceeds the ceiling.
	ShareAboveCeiling float64 `json:"share_above_ceiling"`
}
