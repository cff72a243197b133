package stats

import "errors"

var (
	// ErrInvalidInput reports a malformed table: mismatched lengths,
	// negative counts, or a zero row, column, or grand total.
	ErrInvalidInput = errors.New("stats: invalid input")

	// ErrDomain reports an argument outside a function's mathematical
	// domain, such as the log-gamma of a non-positive number.
	ErrDomain = errors.New("stats: domain error")
)
