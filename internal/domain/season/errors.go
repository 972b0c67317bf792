package season

import "errors"

// Sentinel kinds for season errors.
var (
	// ErrUnknownSeason reports a season name with no registered constructor.
	ErrUnknownSeason = errors.New("unknown season")
	// ErrCompetitionMismatch reports a request aimed at a competition other
	// than the one the grader was built for.
	ErrCompetitionMismatch = errors.New("competition mismatch")
	// ErrMissingRound reports a round ref the roster does not contain.
	ErrMissingRound = errors.New("round not found in roster")
)
