package models

import "errors"

// Error taxonomy for the job pipeline. Callers classify failures with
// errors.Is and map them to transport codes in the handler layer.
var (
	// ErrConfiguration covers undecodable or degenerate input images.
	// Surfaced at upload/build time; the job never starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation covers simulation parameters outside their documented
	// ranges. Surfaced at start time; the job stays pending.
	ErrValidation = errors.New("validation error")

	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobState is returned when an operation is attempted on a job in
	// the wrong lifecycle state (e.g. starting a job twice).
	ErrJobState = errors.New("invalid job state")

	// ErrCancelled marks user-initiated cancellation, distinguishable
	// from true runtime failures.
	ErrCancelled = errors.New("job cancelled")
)
