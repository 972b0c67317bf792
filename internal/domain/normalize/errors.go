package normalize

import "errors"

// Sentinel kinds for normalization errors. ErrNoData and ErrNoConvergence
// are deliberately distinct: an empty population is a roster condition, a
// solver giving up is a numerical one, and callers render them differently.
var (
	ErrNoData        = errors.New("no data to calibrate")
	ErrNoConvergence = errors.New("solver did not converge")
)
