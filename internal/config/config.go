// Package config provides configuration management functionality.
//
// All knobs are read once into an explicit Config struct that is handed
// to the pipeline stages; stage code never reads the environment itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding PLAFOND_* variable is unset.
const (
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultFetchRetries  = 3
	DefaultFetchBackoff  = 2 * time.Second
	DefaultFetchDeadline = 2 * time.Minute

	// DefaultOpenEndedAverage is the assumed average monthly pension for
	// the open-ended top band of the distribution (EUR). The source table
	// gives that band no upper bound, so a value has to be supplied.
	DefaultOpenEndedAverage = 8000

	// DefaultCategory is the ceiling category used when a command does
	// not name one explicitly.
	DefaultCategory = "monthly"

	// DefaultDiskFloorMB is the free-space floor for the status preflight.
	DefaultDiskFloorMB = 128
)

// Config holds application configuration.
type Config struct {
	DataDir   string // directory holding the cache and staging files (always absolute)
	SourceURL string // upstream dataset endpoint; required for download/schedule

	// Fetch behavior: bounded retries with backoff under an overall
	// deadline. Only fetch failures are ever retried.
	HTTPTimeout   time.Duration
	FetchRetries  int
	FetchBackoff  time.Duration
	FetchDeadline time.Duration

	// Analysis defaults; both can be overridden per invocation.
	OpenEndedAverage float64
	DefaultCategory  string

	// Schedules for `plafond schedule` (robfig/cron expressions, with
	// seconds). ComputeCron may be empty to schedule downloads only.
	DownloadCron string
	ComputeCron  string

	DiskFloorMB uint64

	LogLevel  string
	LogPretty bool

	// S3 is non-nil when an S3-compatible destination is configured
	// (s3:// sinks and snapshot uploads).
	S3 *S3Config
}

// S3Config holds credentials and addressing for an S3-compatible store
// (AWS S3, Cloudflare R2, MinIO). Endpoint may be empty for plain AWS.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PLAFOND_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		SourceURL:        getEnv("PLAFOND_SOURCE_URL", ""),
		HTTPTimeout:      getEnvAsDuration("PLAFOND_HTTP_TIMEOUT", DefaultHTTPTimeout),
		FetchRetries:     getEnvAsInt("PLAFOND_FETCH_RETRIES", DefaultFetchRetries),
		FetchBackoff:     getEnvAsDuration("PLAFOND_FETCH_BACKOFF", DefaultFetchBackoff),
		FetchDeadline:    getEnvAsDuration("PLAFOND_FETCH_DEADLINE", DefaultFetchDeadline),
		OpenEndedAverage: getEnvAsFloat("PLAFOND_OPEN_ENDED_AVERAGE", DefaultOpenEndedAverage),
		// Categories are matched case-insensitively everywhere
		DefaultCategory:  strings.ToLower(getEnv("PLAFOND_DEFAULT_CATEGORY", DefaultCategory)),
		DownloadCron:     getEnv("PLAFOND_DOWNLOAD_CRON", "0 0 6 * * *"), // 06:00 daily
		ComputeCron:      getEnv("PLAFOND_COMPUTE_CRON", ""),
		DiskFloorMB:      uint64(getEnvAsInt("PLAFOND_DISK_FLOOR_MB", DefaultDiskFloorMB)),
		LogLevel:         getEnv("PLAFOND_LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("PLAFOND_LOG_PRETTY", true),
		S3:               loadS3Config(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadS3Config returns S3 settings, or nil when no bucket is configured.
func loadS3Config() *S3Config {
	bucket := getEnv("PLAFOND_S3_BUCKET", "")
	if bucket == "" {
		return nil
	}
	return &S3Config{
		Endpoint:        getEnv("PLAFOND_S3_ENDPOINT", ""),
		Region:          getEnv("PLAFOND_S3_REGION", "auto"),
		Bucket:          bucket,
		AccessKeyID:     getEnv("PLAFOND_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("PLAFOND_S3_SECRET_ACCESS_KEY", ""),
	}
}

// Validate checks invariants that hold for every command. SourceURL is
// deliberately not required here: compute-only commands work from the
// cache alone, and the commands that do fetch check it themselves.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("PLAFOND_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.FetchRetries < 1 {
		return fmt.Errorf("PLAFOND_FETCH_RETRIES must be at least 1, got %d", c.FetchRetries)
	}
	if c.FetchBackoff <= 0 {
		return fmt.Errorf("PLAFOND_FETCH_BACKOFF must be positive, got %s", c.FetchBackoff)
	}
	if c.FetchDeadline < c.HTTPTimeout {
		return fmt.Errorf("PLAFOND_FETCH_DEADLINE (%s) must not be shorter than PLAFOND_HTTP_TIMEOUT (%s)",
			c.FetchDeadline, c.HTTPTimeout)
	}
	if c.OpenEndedAverage <= 0 {
		return fmt.Errorf("PLAFOND_OPEN_ENDED_AVERAGE must be positive, got %v", c.OpenEndedAverage)
	}
	if c.DefaultCategory == "" {
		return fmt.Errorf("PLAFOND_DEFAULT_CATEGORY must not be empty")
	}
	if c.S3 != nil {
		if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
			return fmt.Errorf("PLAFOND_S3_BUCKET is set but credentials are incomplete")
		}
	}
	return nil
}

// CachePath returns the location of the live cache database.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "plafond.db")
}

// getEnv retrieves an environment variable value, returning a fallback
// if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer.
func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvAsFloat retrieves an environment variable as a float.
func getEnvAsFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvAsBool retrieves an environment variable as a boolean.
func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

// getEnvAsDuration retrieves an environment variable as a duration
// ("30s", "2m", ...).
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
