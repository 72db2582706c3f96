package energy

import "errors"

var (
	// ErrOutOfRange is returned when a converted reading fails the plausibility check
	ErrOutOfRange = errors.New("reading out of range")
)
