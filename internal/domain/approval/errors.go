package approval

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for missing or malformed input. Recoverable:
	// the caller can correct and retry.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when the acting principal is not entitled
	// to act on the claim or seat.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition is returned for a decision against a terminal
	// claim or an out-of-sequence seat.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDuplicateSeat is returned when a seat already has a decision on
	// record. It wraps ErrInvalidTransition so callers handling conflicts can
	// match either.
	ErrDuplicateSeat = fmt.Errorf("%w: seat already decided", ErrInvalidTransition)

	// ErrUpstreamUnavailable is returned when an external collaborator (rate
	// source, document extractor) fails.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
