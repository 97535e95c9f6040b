package reports

import "errors"

var (
	// ErrDivisionByZero is returned instead of a NaN or zero success rate
	// when a treatment group has no rows.
	ErrDivisionByZero = errors.New("division by zero: no treatments to rate")

	ErrUnknownReport    = errors.New("unknown report")
	ErrMissingParameter = errors.New("missing required parameter")
)
