package acquire

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"plafond/internal/domain"
)

// percentageSumTolerance bounds how far band percentages may drift from
// a full 100% before the dataset is rejected.
const percentageSumTolerance = 1.5

var digitPattern = regexp.MustCompile(`[0-9]`)

// validatePayload checks the structural integrity of a decoded dataset.
// Any violation is fatal for the whole payload; the cache is never
// touched with partially valid data.
func validatePayload(env *payloadEnvelope) error {
	if strings.TrimSpace(env.Version) == "" {
		return &domain.ValidationError{Field: "version", Message: "must not be empty"}
	}
	if len(env.Ceilings) == 0 {
		return &domain.ValidationError{Field: "ceilings", Message: "dataset contains no records"}
	}

	type key struct{ date, category, version string }
	seen := make(map[key]bool, len(env.Ceilings))

	for i, c := range env.Ceilings {
		field := func(name string) string { return fmt.Sprintf("ceilings[%d].%s", i, name) }

		date, err := domain.ParseDate(strings.TrimSpace(c.EffectiveDate))
		if err != nil {
			return &domain.ValidationError{Field: field("effective_date"),
				Message: fmt.Sprintf("%q is not a valid date", c.EffectiveDate)}
		}
		category := canonicalCategory(c.Category)
		if category == "" {
			return &domain.ValidationError{Field: field("category"), Message: "must not be empty"}
		}
		if c.Value <= 0 || math.IsInf(c.Value, 0) || math.IsNaN(c.Value) {
			return &domain.ValidationError{Field: field("value"),
				Message: fmt.Sprintf("must be a positive amount, got %v", c.Value)}
		}

		k := key{date, category, recordVersion(env, c)}
		if seen[k] {
			return &domain.ValidationError{Field: field(""),
				Message: fmt.Sprintf("duplicate record for (%s, %s, %s)", k.date, k.category, k.version)}
		}
		seen[k] = true
	}

	if env.Distribution != nil {
		if err := validateDistribution(env.Distribution); err != nil {
			return err
		}
	}

	return nil
}

func validateDistribution(dist *payloadDistribution) error {
	if dist.TotalPensioners <= 0 {
		return &domain.ValidationError{Field: "distribution.total_pensioners",
			Message: fmt.Sprintf("must be positive, got %d", dist.TotalPensioners)}
	}
	if len(dist.Bands) == 0 {
		return &domain.ValidationError{Field: "distribution.bands", Message: "must not be empty"}
	}

	var sum float64
	for i, band := range dist.Bands {
		field := func(name string) string { return fmt.Sprintf("distribution.bands[%d].%s", i, name) }

		label := strings.TrimSpace(band.Label)
		if label == "" {
			return &domain.ValidationError{Field: field("label"), Message: "must not be empty"}
		}
		// Band averages are derived from the amounts named in the label,
		// so a label without digits can never be analyzed.
		if !digitPattern.MatchString(label) {
			return &domain.ValidationError{Field: field("label"),
				Message: fmt.Sprintf("%q names no amount", label)}
		}
		if band.Percentage < 0 || math.IsInf(band.Percentage, 0) || math.IsNaN(band.Percentage) {
			return &domain.ValidationError{Field: field("percentage"),
				Message: fmt.Sprintf("must not be negative, got %v", band.Percentage)}
		}
		sum += band.Percentage
	}

	if math.Abs(sum-100) > percentageSumTolerance {
		return &domain.ValidationError{Field: "distribution.bands",
			Message: fmt.Sprintf("percentages sum to %.2f, want 100 ± %.1f", sum, percentageSumTolerance)}
	}

	return nil
}
