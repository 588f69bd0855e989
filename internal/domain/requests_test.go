package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestFile(t *testing.T) {
	data := []byte(`
requests:
  - period: 2024-06-01
    categories: [monthly, annual]
  - period: 2023-02-15
    categories:
      - daily
`)

	set, err := ParseRequestFile(data)
	require.NoError(t, err)
	require.Len(t, set.Requests, 2)
	assert.Equal(t, "2024-06-01", set.Requests[0].Period)
	assert.Equal(t, []string{"monthly", "annual"}, set.Requests[0].Categories)
}

func TestParseRequestFileRejectsEmpty(t *testing.T) {
	_, err := ParseRequestFile([]byte("requests: []"))
	assert.Error(t, err)

	_, err = ParseRequestFile([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestNormalizeSortsAndDeduplicates(t *testing.T) {
	set := &RequestSet{Requests: []RequestEntry{
		{Period: "2024-06-01", Categories: []string{"Monthly", "annual", "monthly"}},
		{Period: "2023-02-15", Categories: []string{"daily"}},
		{Period: "2024-06-01", Categories: []string{"annual"}},
	}}

	targets, err := set.Normalize()
	require.NoError(t, err)

	assert.Equal(t, []RequestTarget{
		{Period: "2023-02-15", Category: "daily"},
		{Period: "2024-06-01", Category: "annual"},
		{Period: "2024-06-01", Category: "monthly"},
	}, targets)
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		set  RequestSet
	}{
		{"bad period", RequestSet{Requests: []RequestEntry{
			{Period: "June 2024", Categories: []string{"monthly"}},
		}}},
		{"no categories", RequestSet{Requests: []RequestEntry{
			{Period: "2024-06-01"},
		}}},
		{"blank category", RequestSet{Requests: []RequestEntry{
			{Period: "2024-06-01", Categories: []string{"  "}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.set.Normalize()
			assert.Error(t, err)
		})
	}
}
