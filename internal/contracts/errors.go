package contracts

import "errors"

// Error kinds. Both abort a run before any output is written.
var (
	// ErrConfiguration covers missing input, missing columns, zero stocks and bad parameters
	ErrConfiguration = errors.New("configuration error")

	// ErrDataValidation covers malformed cells and broken series invariants
	ErrDataValidation = errors.New("data validation error")
)
