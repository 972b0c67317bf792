package blend

import "github.com/okian/podium/internal/domain/types"

// Linear combines categories with fixed weights: each participant's final
// score is the weighted sum of the category scores present for them.
// Categories are expected to be standardized (Z-scores) before blending so
// that fixed weights compare like with like.
func Linear(weights map[string]float64, obs Observations) map[string]float64 {
	out := make(map[string]float64, len(obs))
	for participant, scores := range obs {
		sum := 0.0
		for category, s := range scores {
			w, ok := weights[category]
			if !ok {
				continue
			}
			sum += w * s
		}
		out[participant] = sum
	}
	return out
}

// LinearPerDivision runs Linear independently for each division.
func LinearPerDivision(weights map[string]float64, obs map[types.Division]Observations) types.ScoreMap {
	out := make(types.ScoreMap, len(obs))
	for d, divisionObs := range obs {
		out[d] = Linear(weights, divisionObs)
	}
	return out
}
