package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("download: %w", &FetchError{URL: "https://example.org/ds", Attempts: 3, Err: cause})

	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.True(t, errors.Is(err, cause))
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&ValidationError{Field: "ceilings", Message: "empty"}).Error(), "ceilings")
	assert.Contains(t, (&CacheMissingError{Path: "/data/plafond.db"}).Error(), "plafond download")
	assert.Contains(t, (&NoApplicableDataError{Period: "2024-06-01", Category: "monthly"}).Error(), "monthly")
	assert.Contains(t, (&StorageError{Op: "rename", Path: "/data/plafond.db", Err: errors.New("denied")}).Error(), "rename")
	assert.Contains(t, (&ComputationError{Reason: "ceiling must be positive"}).Error(), "positive")
}
