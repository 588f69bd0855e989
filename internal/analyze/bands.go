// Package analyze implements the capping analysis: apply a ceiling to
// the cached pension distribution and report the per-band effects and
// the savings a cap would produce.
package analyze

import (
	"fmt"
	"regexp"
	"strconv"

	"plafond/internal/domain"
)

// Band labels name amounts as plain digit runs ("de 300 à 600 euros");
// six digits covers any published pension amount.
var numberPattern = regexp.MustCompile(`[0-9]{1,6}`)

// extractNumbers returns every amount named in a band label, in order
// of appearance.
func extractNumbers(label string) []float64 {
	matches := numberPattern.FindAllString(label, -1)
	numbers := make([]float64, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue // unreachable for digit-only matches
		}
		numbers = append(numbers, n)
	}
	return numbers
}

// labelAverage derives a band's average pension as the mean of the
// amounts its label names: "de 300 à 600 euros" averages to 450.
func labelAverage(label string) (float64, error) {
	numbers := extractNumbers(label)
	if len(numbers) == 0 {
		return 0, &domain.ComputationError{
			Reason: fmt.Sprintf("band label %q names no amount", label),
		}
	}

	var sum float64
	for _, n := range numbers {
		sum += n
	}
	return sum / float64(len(numbers)), nil
}

// deriveAverages computes the average pension of each band. The final
// band is open-ended (no upper bound in its label), so its average
// cannot be derived and openEndedAverage is used instead.
func deriveAverages(bands []domain.DistributionBand, openEndedAverage float64) ([]float64, error) {
	if len(bands) == 0 {
		return nil, &domain.ComputationError{Reason: "distribution has no bands"}
	}
	if openEndedAverage <= 0 {
		return nil, &domain.ComputationError{
			Reason: fmt.Sprintf("open-ended average must be positive, got %v", openEndedAverage),
		}
	}

	averages := make([]float64, len(bands))
	for i, band := range bands[:len(bands)-1] {
		avg, err := labelAverage(band.Label)
		if err != nil {
			return nil, err
		}
		averages[i] = avg
	}
	averages[len(bands)-1] = openEndedAverage

	return averages, nil
}
