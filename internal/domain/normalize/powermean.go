package normalize

import (
	"fmt"
	"math"

	"github.com/okian/podium/pkg/metrics"
)

// Power-mean calibration fits one exponent p per (division, subject) so that
// the population mean of score^p hits a fixed target quantile. Subjects of
// differing difficulty then produce comparable percentile-like scores.
const (
	// DefaultTargetQuantile is the documented calibration target.
	DefaultTargetQuantile = 0.375

	newtonMaxIterations = 60
	newtonTolerance     = 1e-10
	// minSamples below which exponent fitting is ill-posed; the exponent
	// stays neutral instead of attempting an under-determined fit.
	minSamples = 3
)

// PowerMeanExponent finds p such that mean(s^p) == target over the
// normalized scores (each expected in [0, 1]).
//
// Fewer than minSamples scores yields the neutral exponent 1 with no error.
// An empty population is ErrNoData; a Newton iteration that fails to
// converge within its budget is ErrNoConvergence, reported distinctly so
// callers can surface a diagnostic instead of a wrong number.
func PowerMeanExponent(scores []float64, target float64) (float64, error) {
	if len(scores) == 0 {
		return 0, ErrNoData
	}
	if len(scores) < minSamples {
		return 1, nil
	}
	if target <= 0 || target >= 1 {
		return 0, fmt.Errorf("%w: target %v outside (0,1)", ErrNoConvergence, target)
	}
	// With only zeros and ones, mean(s^p) is constant in p; there is nothing
	// to fit and the neutral exponent stands.
	interior := 0
	for _, s := range scores {
		if s > 0 && s < 1 {
			interior++
		}
	}
	if interior == 0 {
		return 1, nil
	}

	metrics.RecordSolverRun("powermean")
	p := 1.0
	for i := 0; i < newtonMaxIterations; i++ {
		f, df := meanPow(scores, p)
		f -= target
		if math.Abs(f) < newtonTolerance {
			metrics.RecordSolverIterations(i + 1)
			return p, nil
		}
		if math.Abs(df) < 1e-15 {
			break
		}
		next := p - f/df
		// The exponent is meaningful only for positive p; halve the step
		// instead of jumping across zero.
		for next <= 0 {
			next = (p + next) / 2
			if math.Abs(next-p) < 1e-18 {
				break
			}
		}
		if next <= 0 {
			break
		}
		p = next
	}
	metrics.RecordSolverFailure("powermean")
	return 0, fmt.Errorf("%w: newton budget of %d iterations exhausted", ErrNoConvergence, newtonMaxIterations)
}

// meanPow returns mean(s^p) and its derivative d/dp mean(s^p) =
// mean(s^p ln s). Zero scores contribute nothing to either term.
func meanPow(scores []float64, p float64) (float64, float64) {
	var sum, dsum float64
	for _, s := range scores {
		if s <= 0 {
			continue
		}
		sp := math.Pow(s, p)
		sum += sp
		dsum += sp * math.Log(s)
	}
	n := float64(len(scores))
	return sum / n, dsum / n
}
