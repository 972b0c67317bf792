package blend

import "errors"

// Sentinel kinds for blending errors.
var (
	ErrNoConvergence = errors.New("blend solver did not converge")
)
