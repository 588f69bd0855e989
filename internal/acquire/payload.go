// Package acquire implements the data acquisition stage: fetch the
// published dataset, validate it, and persist it as a new cache
// generation.
package acquire

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"plafond/internal/cache"
	"plafond/internal/domain"
)

// payloadEnvelope mirrors the authority's JSON dataset.
type payloadEnvelope struct {
	Version      string               `json:"version"`
	PublishedAt  string               `json:"published_at"`
	Ceilings     []payloadCeiling     `json:"ceilings"`
	Distribution *payloadDistribution `json:"distribution"`
}

type payloadCeiling struct {
	EffectiveDate string  `json:"effective_date"`
	Category      string  `json:"category"`
	Value         float64 `json:"value"`

	// Version overrides the dataset version for this record; the
	// authority publishes it on corrected entries.
	Version string `json:"version,omitempty"`
}

type payloadDistribution struct {
	TotalPensioners int64         `json:"total_pensioners"`
	Bands           []payloadBand `json:"bands"`
}

type payloadBand struct {
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
}

// parsePayload decodes the raw dataset bytes.
func parsePayload(data []byte) (*payloadEnvelope, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &domain.ValidationError{Field: "payload",
			Message: fmt.Sprintf("not valid JSON: %v", err)}
	}
	return &env, nil
}

// buildContent converts a validated envelope into cache content:
// dates normalized, categories canonicalized, upstream revisions of the
// same (date, category) collapsed to the highest version, records in
// deterministic order.
func buildContent(env *payloadEnvelope, generationID, sourceURL, payloadSHA string, fetchedAt time.Time) *cache.Content {
	type key struct{ date, category string }
	best := make(map[key]domain.SourceRecord, len(env.Ceilings))

	for _, c := range env.Ceilings {
		date, _ := domain.ParseDate(strings.TrimSpace(c.EffectiveDate)) // validated upstream
		record := domain.SourceRecord{
			EffectiveDate: date,
			Category:      canonicalCategory(c.Category),
			Value:         c.Value,
			SourceVersion: recordVersion(env, c),
		}

		k := key{record.EffectiveDate, record.Category}
		current, seen := best[k]
		if !seen || domain.CompareVersions(record.SourceVersion, current.SourceVersion) > 0 {
			best[k] = record
		}
	}

	records := make([]domain.SourceRecord, 0, len(best))
	for _, r := range best {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].EffectiveDate != records[j].EffectiveDate {
			return records[i].EffectiveDate < records[j].EffectiveDate
		}
		return records[i].Category < records[j].Category
	})

	content := &cache.Content{
		GenerationID:  generationID,
		SourceVersion: env.Version,
		SourceURL:     sourceURL,
		FetchedAt:     fetchedAt,
		PayloadSHA256: payloadSHA,
		Records:       records,
	}

	if env.Distribution != nil {
		bands := make([]domain.DistributionBand, len(env.Distribution.Bands))
		for i, b := range env.Distribution.Bands {
			bands[i] = domain.DistributionBand{
				Position:   i,
				Label:      strings.TrimSpace(b.Label),
				Percentage: b.Percentage,
			}
		}
		content.Distribution = &domain.Distribution{
			TotalPensioners: env.Distribution.TotalPensioners,
			Bands:           bands,
		}
	}

	return content
}

// recordVersion resolves the effective version of one ceiling entry.
func recordVersion(env *payloadEnvelope, c payloadCeiling) string {
	if v := strings.TrimSpace(c.Version); v != "" {
		return v
	}
	return strings.TrimSpace(env.Version)
}

// canonicalCategory normalizes a category identifier. Matching is
// case-insensitive throughout the pipeline.
func canonicalCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
