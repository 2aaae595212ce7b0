package engine

import "errors"

var (
	// ErrInvalidPercent is returned for watch progress outside 0-100.
	ErrInvalidPercent = errors.New("watch percent must be in [0, 100]")

	// ErrInvalidScore is returned for quiz scores outside 0-100.
	ErrInvalidScore = errors.New("quiz score must be in [0, 100]")
)
