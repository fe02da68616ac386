package proxy

import "errors"

// Sentinel errors returned by the service layer. Callers match with
// errors.Is; the wrapped message carries the user-facing detail.
var (
	// ErrNotFound is returned when a system, persona, or message lookup fails.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the caller is not the author or
	// owner of the target.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation is returned for malformed input rejected before any
	// mutation: bad tag patterns, empty names, invalid styles.
	ErrValidation = errors.New("invalid input")

	// ErrConfirmRequired is returned for destructive history operations
	// invoked without the explicit confirmation flag.
	ErrConfirmRequired = errors.New("confirmation required")
)
