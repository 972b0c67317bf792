package normalize

import (
	"gonum.org/v1/gonum/stat"

	"github.com/okian/podium/internal/domain/types"
)

// ZScores standardizes one division bucket: (x - mean) / sample stddev.
// A zero standard deviation (all scores equal, or a single participant)
// standardizes to all zeros rather than dividing by zero.
func ZScores(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	xs := make([]float64, 0, len(scores))
	for _, v := range scores {
		xs = append(xs, v)
	}
	mean := stat.Mean(xs, nil)
	stddev := 0.0
	if len(xs) > 1 {
		stddev = stat.StdDev(xs, nil)
	}
	for id, v := range scores {
		if stddev == 0 {
			out[id] = 0
			continue
		}
		out[id] = (v - mean) / stddev
	}
	return out
}

// ZScoreMap standardizes every division of a score map independently.
func ZScoreMap(m types.ScoreMap) types.ScoreMap {
	out := make(types.ScoreMap, len(m))
	for d, bucket := range m {
		out[d] = ZScores(bucket)
	}
	return out
}
