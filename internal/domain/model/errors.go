package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrInvalidRoster = errors.New("invalid roster")
)
