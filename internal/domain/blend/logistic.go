// Package blend combines heterogeneous score categories (individual, team,
// guts) into one final score per participant.
//
// The logistic variant fits one additive parameter per category so that
// pairwise-compared category scores sharing a participant become mutually
// consistent after weighting; parameters are constrained to a weighted sum
// of zero, leaving d-1 free variables for the solver.
package blend

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/metrics"
)

const (
	solverTolerance  = 1e-12
	solverIterations = 400
)

// Observations maps participant -> category -> raw score in [0, 1]. The
// per-participant mapping may be partial; a missing category contributes
// nothing to that participant's final score.
type Observations map[string]map[string]float64

// Transform is the logistic rescaling s / (s + e^a * (1-s)). It fixes the
// endpoints: 0 and 1 map to themselves for every parameter a.
func Transform(s, a float64) float64 {
	if s <= 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	return s / (s + math.Exp(a)*(1-s))
}

// Logistic fits per-category parameters and returns each participant's
// final score as the weighted sum of transformed observations. A nil
// weights map weighs every category equally.
func Logistic(categories []string, weights map[string]float64, obs Observations) (map[string]float64, error) {
	if len(categories) == 0 {
		return map[string]float64{}, nil
	}
	w := make(map[string]float64, len(categories))
	for _, c := range categories {
		w[c] = 1
		if weights != nil {
			if v, ok := weights[c]; ok {
				w[c] = v
			}
		}
	}

	factors, err := fitFactors(categories, w, obs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(obs))
	for participant, scores := range obs {
		sum := 0.0
		for _, c := range categories {
			s, ok := scores[c]
			if !ok {
				continue
			}
			sum += w[c] * Transform(s, factors[c])
		}
		out[participant] = sum
	}
	return out, nil
}

// LogisticPerDivision runs Logistic independently for each division.
func LogisticPerDivision(categories []string, weights map[string]float64, obs map[types.Division]Observations) (types.ScoreMap, error) {
	out := make(types.ScoreMap, len(obs))
	for d, divisionObs := range obs {
		scores, err := Logistic(categories, weights, divisionObs)
		if err != nil {
			return nil, fmt.Errorf("division %d: %w", d, err)
		}
		out[d] = scores
	}
	return out, nil
}

// fitFactors solves the d-1 free parameters minimizing the weighted pairwise
// inconsistency loss, then expands them to all d categories under the
// weighted-sum-zero constraint.
func fitFactors(categories []string, w map[string]float64, obs Observations) (map[string]float64, error) {
	d := len(categories)
	if d == 1 {
		return map[string]float64{categories[0]: 0}, nil
	}

	expand := func(x []float64) map[string]float64 {
		factors := make(map[string]float64, d)
		tail := 0.0
		for i := 0; i < d-1; i++ {
			factors[categories[i]] = x[i]
			tail += w[categories[i]] * x[i]
		}
		factors[categories[d-1]] = -tail / w[categories[d-1]]
		return factors
	}

	loss := func(x []float64) float64 {
		factors := expand(x)
		total := 0.0
		for _, scores := range obs {
			for i := 0; i < d; i++ {
				ci := categories[i]
				si, ok := scores[ci]
				if !ok {
					continue
				}
				for j := i + 1; j < d; j++ {
					cj := categories[j]
					sj, ok := scores[cj]
					if !ok {
						continue
					}
					diff := Transform(si, factors[ci]) - Transform(sj, factors[cj])
					total += w[ci] * w[cj] * si * sj * diff * diff
				}
			}
		}
		return total
	}

	metrics.RecordSolverRun("logistic")
	problem := optimize.Problem{Func: loss}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   solverTolerance,
			Relative:   solverTolerance,
			Iterations: 20,
		},
		MajorIterations: solverIterations,
	}
	result, err := optimize.Minimize(problem, make([]float64, d-1), settings, &optimize.NelderMead{})
	if err != nil {
		metrics.RecordSolverFailure("logistic")
		return nil, fmt.Errorf("%w: %w", ErrNoConvergence, err)
	}
	if result.Status != optimize.FunctionConvergence && result.Status != optimize.GradientThreshold && result.Status != optimize.Success {
		metrics.RecordSolverFailure("logistic")
		return nil, fmt.Errorf("%w: solver status %v", ErrNoConvergence, result.Status)
	}
	metrics.RecordSolverIterations(result.Stats.MajorIterations)
	return expand(result.X), nil
}
