package main

import (
	"errors"

	"plafond/internal/domain"
)

// Exit codes, one per failure class, so cron wrappers and CI can react
// without parsing log output.
const (
	exitOK               = 0
	exitInternal         = 1
	exitUsage            = 2
	exitFetch            = 3
	exitValidation       = 4
	exitStorage          = 5
	exitCacheMissing     = 6
	exitNoApplicableData = 7
	exitComputation      = 8
)

// usageError marks operator mistakes: bad flags, missing arguments,
// contradictory options.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

// exitCodeFor maps an error to the command's exit code via the error
// taxonomy, unwrapping as needed.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var usage *usageError
	var fetch *domain.FetchError
	var validation *domain.ValidationError
	var storage *domain.StorageError
	var missing *domain.CacheMissingError
	var noData *domain.NoApplicableDataError
	var computation *domain.ComputationError

	switch {
	case errors.As(err, &usage):
		return exitUsage
	case errors.As(err, &fetch):
		return exitFetch
	case errors.As(err, &validation):
		return exitValidation
	case errors.As(err, &storage):
		return exitStorage
	case errors.As(err, &missing):
		return exitCacheMissing
	case errors.As(err, &noData):
		return exitNoApplicableData
	case errors.As(err, &computation):
		return exitComputation
	default:
		return exitInternal
	}
}
