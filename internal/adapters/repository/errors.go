package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound       = errors.New("answer not found")
	ErrInvalidRef     = errors.New("participant reference must name exactly one of student or team")
	ErrNoActiveRoster = errors.New("no active competition in store")
)
