package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a record is absent from the backing store. It is
	// never returned for backend outages; see ErrStorageUnavailable.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable indicates the backing store could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInsufficientCredit indicates an entitlement check failed: no active
	// subscription and not enough credits for the requested decrement.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrJobTimeout indicates polling exceeded the configured deadline. The
	// provider-side job may still complete out of band.
	ErrJobTimeout = errors.New("prediction polling timed out")

	// ErrEmptyOutput indicates the provider reported success with no artifact.
	ErrEmptyOutput = errors.New("prediction succeeded with empty output")

	// ErrUnrecognizedOutput indicates the provider returned an output shape
	// that cannot be normalized to a single artifact reference.
	ErrUnrecognizedOutput = errors.New("unrecognized prediction output shape")
)

// JobFailedError carries a terminal provider failure verbatim.
type JobFailedError struct {
	Status          PredictionStatus
	ProviderMessage string
}

func (e *JobFailedError) Error() string {
	if e.ProviderMessage == "" {
		return fmt.Sprintf("prediction %s", e.Status)
	}
	return fmt.Sprintf("prediction %s: %s", e.Status, e.ProviderMessage)
}
