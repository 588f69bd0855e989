package domain

import "fmt"

// The pipeline's error taxonomy. Every fatal class terminates the
// process with its own exit code; only FetchError is ever retried, and
// only inside the Acquirer.

// FetchError reports a failure to retrieve the dataset from the upstream
// authority. It is the only retryable class.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports a structurally invalid payload or archive.
// The cache is left unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid dataset: %s: %s", e.Field, e.Message)
}

// StorageError reports a failure to persist or read local state.
type StorageError struct {
	Op   string // "create", "rename", "open", ...
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CacheMissingError reports that the Computer was asked to run before
// the Acquirer ever completed (or the cache is unusable).
type CacheMissingError struct {
	Path   string
	Reason string
}

func (e *CacheMissingError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cache missing at %s: run `plafond download` first", e.Path)
	}
	return fmt.Sprintf("cache missing at %s: %s", e.Path, e.Reason)
}

// NoApplicableDataError reports a coverage gap: no cached record applies
// to the requested period and category. The Computer never extrapolates.
type NoApplicableDataError struct {
	Period   string
	Category string
}

func (e *NoApplicableDataError) Error() string {
	return fmt.Sprintf("no applicable record for category %q at %s", e.Category, e.Period)
}

// ComputationError reports formula inputs outside their valid domain.
type ComputationError struct {
	Reason string
}

func (e *ComputationError) Error() string {
	return "computation: " + e.Reason
}
