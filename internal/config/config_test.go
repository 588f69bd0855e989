package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLAFOND_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultFetchRetries, cfg.FetchRetries)
	assert.Equal(t, DefaultFetchBackoff, cfg.FetchBackoff)
	assert.Equal(t, float64(DefaultOpenEndedAverage), cfg.OpenEndedAverage)
	assert.Equal(t, DefaultCategory, cfg.DefaultCategory)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.SourceURL)
	assert.Nil(t, cfg.S3, "S3 config should be nil without a bucket")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLAFOND_DATA_DIR", t.TempDir())
	t.Setenv("PLAFOND_SOURCE_URL", "https://example.org/ceilings.json")
	t.Setenv("PLAFOND_HTTP_TIMEOUT", "10s")
	t.Setenv("PLAFOND_FETCH_RETRIES", "5")
	t.Setenv("PLAFOND_FETCH_BACKOFF", "500ms")
	t.Setenv("PLAFOND_FETCH_DEADLINE", "1m")
	t.Setenv("PLAFOND_OPEN_ENDED_AVERAGE", "9500")
	t.Setenv("PLAFOND_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/ceilings.json", cfg.SourceURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.FetchRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.FetchBackoff)
	assert.Equal(t, time.Minute, cfg.FetchDeadline)
	assert.Equal(t, 9500.0, cfg.OpenEndedAverage)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PLAFOND_DATA_DIR", t.TempDir())
	t.Setenv("PLAFOND_FETCH_RETRIES", "not-a-number")
	t.Setenv("PLAFOND_HTTP_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultFetchRetries, cfg.FetchRetries)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
}

func TestValidateRejectsBadCombinations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"zero retries", func(c *Config) { c.FetchRetries = 0 }},
		{"deadline below timeout", func(c *Config) { c.FetchDeadline = c.HTTPTimeout / 2 }},
		{"negative open-ended average", func(c *Config) { c.OpenEndedAverage = -1 }},
		{"empty category", func(c *Config) { c.DefaultCategory = "" }},
		{"s3 without credentials", func(c *Config) { c.S3 = &S3Config{Bucket: "b"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DataDir:          "/tmp/plafond-test",
				HTTPTimeout:      DefaultHTTPTimeout,
				FetchRetries:     DefaultFetchRetries,
				FetchBackoff:     DefaultFetchBackoff,
				FetchDeadline:    DefaultFetchDeadline,
				OpenEndedAverage: DefaultOpenEndedAverage,
				DefaultCategory:  DefaultCategory,
			}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestS3ConfigLoaded(t *testing.T) {
	t.Setenv("PLAFOND_DATA_DIR", t.TempDir())
	t.Setenv("PLAFOND_S3_BUCKET", "plafond-artifacts")
	t.Setenv("PLAFOND_S3_ENDPOINT", "https://accountid.r2.cloudflarestorage.com")
	t.Setenv("PLAFOND_S3_ACCESS_KEY_ID", "key")
	t.Setenv("PLAFOND_S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.S3)

	assert.Equal(t, "plafond-artifacts", cfg.S3.Bucket)
	assert.Equal(t, "https://accountid.r2.cloudflarestorage.com", cfg.S3.Endpoint)
	assert.Equal(t, "auto", cfg.S3.Region)
}
