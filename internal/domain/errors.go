package domain

import "errors"

// ErrRateNotFound is returned when no direct, reverse or one-hop conversion
// path exists for a currency pair. A missing rate is a configuration gap,
// not a transient fault, so callers must not retry.
var ErrRateNotFound = errors.New("exchange rate not found")

// ErrInvalidInput is returned for precondition violations: empty ensembles,
// zero-day trajectories, percentiles outside [0,1] and malformed states.
var ErrInvalidInput = errors.New("invalid input")
