package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plafond/internal/domain"
)

func validEnvelope() *payloadEnvelope {
	return &payloadEnvelope{
		Version: "2024-01-15",
		Ceilings: []payloadCeiling{
			{EffectiveDate: "2023-01-01", Category: "monthly", Value: 3666},
			{EffectiveDate: "2024-01-01", Category: "monthly", Value: 3864},
		},
		Distribution: &payloadDistribution{
			TotalPensioners: 14_900_000,
			Bands: []payloadBand{
				{Label: "moins de 1000 euros", Percentage: 30},
				{Label: "de 1000 à 2000 euros", Percentage: 50},
				{Label: "2000 euros ou plus", Percentage: 20},
			},
		},
	}
}

func TestValidatePayloadAcceptsValidDataset(t *testing.T) {
	assert.NoError(t, validatePayload(validEnvelope()))
}

func TestValidatePayloadRejections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*payloadEnvelope)
		wantField string
	}{
		{
			"empty version",
			func(e *payloadEnvelope) { e.Version = "  " },
			"version",
		},
		{
			"no ceilings",
			func(e *payloadEnvelope) { e.Ceilings = nil },
			"ceilings",
		},
		{
			"malformed date",
			func(e *payloadEnvelope) { e.Ceilings[0].EffectiveDate = "01/01/2023" },
			"ceilings[0].effective_date",
		},
		{
			"empty category",
			func(e *payloadEnvelope) { e.Ceilings[1].Category = "" },
			"ceilings[1].category",
		},
		{
			"zero value",
			func(e *payloadEnvelope) { e.Ceilings[0].Value = 0 },
			"ceilings[0].value",
		},
		{
			"negative value",
			func(e *payloadEnvelope) { e.Ceilings[0].Value = -100 },
			"ceilings[0].value",
		},
		{
			"duplicate record",
			func(e *payloadEnvelope) { e.Ceilings = append(e.Ceilings, e.Ceilings[0]) },
			"ceilings[2].",
		},
		{
			"non-positive pensioner total",
			func(e *payloadEnvelope) { e.Distribution.TotalPensioners = 0 },
			"distribution.total_pensioners",
		},
		{
			"empty band list",
			func(e *payloadEnvelope) { e.Distribution.Bands = nil },
			"distribution.bands",
		},
		{
			"band without label",
			func(e *payloadEnvelope) { e.Distribution.Bands[1].Label = "   " },
			"distribution.bands[1].label",
		},
		{
			"band label without amounts",
			func(e *payloadEnvelope) { e.Distribution.Bands[1].Label = "autres pensions" },
			"distribution.bands[1].label",
		},
		{
			"negative percentage",
			func(e *payloadEnvelope) { e.Distribution.Bands[0].Percentage = -1 },
			"distribution.bands[0].percentage",
		},
		{
			"percentages far from 100",
			func(e *payloadEnvelope) { e.Distribution.Bands[0].Percentage = 10 },
			"distribution.bands",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope()
			tt.mutate(env)

			err := validatePayload(env)
			require.Error(t, err)

			var valErr *domain.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Contains(t, valErr.Field, tt.wantField)
		})
	}
}

func TestValidatePayloadAllowsRevisionsOfSameRecord(t *testing.T) {
	env := validEnvelope()
	env.Ceilings = append(env.Ceilings, payloadCeiling{
		EffectiveDate: "2024-01-01", Category: "monthly", Value: 3870, Version: "2024-01-15.2",
	})

	assert.NoError(t, validatePayload(env),
		"a corrected entry under a distinct version is not a duplicate")
}

func TestValidatePayloadTolerantPercentageSum(t *testing.T) {
	env := validEnvelope()
	env.Distribution.Bands[0].Percentage = 31.4 // sum 101.4, inside tolerance

	assert.NoError(t, validatePayload(env))
}

func TestParsePayloadRejectsGarbage(t *testing.T) {
	_, err := parsePayload([]byte("<html>not json</html>"))

	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "payload", valErr.Field)
}

func TestBuildContentDeduplicatesRevisions(t *testing.T) {
	env := validEnvelope()
	env.Ceilings = append(env.Ceilings,
		payloadCeiling{EffectiveDate: "2024-01-01", Category: "monthly", Value: 3870, Version: "2024-01-15.2"},
		payloadCeiling{EffectiveDate: "2024-01-01", Category: "monthly", Value: 3880, Version: "2024-01-15.10"},
	)

	content := buildContent(env, "gen-1", "https://example.org", "sha", testFetchedAt)

	require.Len(t, content.Records, 2, "revisions of one record must collapse to a single row")

	latest := content.Records[1]
	assert.Equal(t, "2024-01-01", latest.EffectiveDate)
	assert.Equal(t, "2024-01-15.10", latest.SourceVersion, "numeric chunks compare numerically, so .10 beats .2")
	assert.Equal(t, 3880.0, latest.Value)
}

func TestBuildContentNormalizesAndOrders(t *testing.T) {
	env := &payloadEnvelope{
		Version: "v1",
		Ceilings: []payloadCeiling{
			{EffectiveDate: "2024-01-01", Category: " Monthly ", Value: 200},
			{EffectiveDate: "2023-01-01", Category: "ANNUAL", Value: 100},
		},
	}

	content := buildContent(env, "gen-1", "", "sha", testFetchedAt)

	require.Len(t, content.Records, 2)
	assert.Equal(t, "annual", content.Records[0].Category)
	assert.Equal(t, "2023-01-01", content.Records[0].EffectiveDate)
	assert.Equal(t, "monthly", content.Records[1].Category)
	assert.Nil(t, content.Distribution)
}
