package domain

import "errors"

var (
	// ErrAPIRejected is returned when the catalog API answers with a
	// non-2xx status. The mutation is abandoned, never retried.
	ErrAPIRejected = errors.New("catalog API rejected the request")

	// ErrAPIUnavailable is returned when the catalog API could not be
	// reached after all retries were exhausted.
	ErrAPIUnavailable = errors.New("catalog API unavailable")

	// ErrNoMatch is returned when a primary product has no counterpart
	// in the secondary catalog.
	ErrNoMatch = errors.New("no matching product in secondary catalog")

	// ErrRunInProgress is returned when a sync run is requested while
	// another one is still executing.
	ErrRunInProgress = errors.New("a sync run is already in progress")
)
