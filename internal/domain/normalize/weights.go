// Package normalize computes the correction factors that make scores
// comparable across subjects and divisions: per-question difficulty weights,
// power-mean exponent calibration, and Z-score standardization.
package normalize

import (
	"math"

	"github.com/okian/podium/internal/domain/types"
)

// WeightFunc maps a question's (correct, total) tally to a correction
// weight. Questions answered correctly by a smaller fraction of test-takers
// earn proportionally more credit. The exact transform has changed between
// seasons, so it is a pluggable strategy.
type WeightFunc func(correct, total float64) float64

// SmoothedLog is the additively-smoothed log-ratio transform. The +2
// smoothing keeps it defined when no one answered a question correctly.
func SmoothedLog(correct, total float64) float64 {
	return 2 + math.Log((total+2)/(correct+2))
}

// LambdaLog scales a raw log-ratio by lambda. It falls back to SmoothedLog
// when the tally would divide by zero.
func LambdaLog(lambda float64) WeightFunc {
	return func(correct, total float64) float64 {
		if correct <= 0 || total <= 0 {
			return SmoothedLog(correct, total)
		}
		return lambda * math.Log(total/correct)
	}
}

// Tally accumulates correctness counts for one question within one
// (division, subject) population.
type Tally struct {
	Correct float64
	Total   float64
}

// TallySet nests tallies by division, subject and question number.
type TallySet map[types.Division]map[types.Subject]map[int]*Tally

// Add records one answer's contribution.
func (t TallySet) Add(d types.Division, s types.Subject, question int, value float64) {
	bySubject, ok := t[d]
	if !ok {
		bySubject = make(map[types.Subject]map[int]*Tally)
		t[d] = bySubject
	}
	byQuestion, ok := bySubject[s]
	if !ok {
		byQuestion = make(map[int]*Tally)
		bySubject[s] = byQuestion
	}
	tally, ok := byQuestion[question]
	if !ok {
		tally = &Tally{}
		byQuestion[question] = tally
	}
	tally.Correct += value
	tally.Total++
}

// CorrectionTable holds per-question correction weights and the per
// (division, subject) maximum attainable weighted score.
type CorrectionTable struct {
	weights map[types.Division]map[types.Subject]map[int]float64
	maxes   map[types.Division]map[types.Subject]float64
}

// BuildCorrectionTable converts tallies into weights using fn.
func BuildCorrectionTable(tallies TallySet, fn WeightFunc) *CorrectionTable {
	t := &CorrectionTable{
		weights: make(map[types.Division]map[types.Subject]map[int]float64),
		maxes:   make(map[types.Division]map[types.Subject]float64),
	}
	for d, bySubject := range tallies {
		t.weights[d] = make(map[types.Subject]map[int]float64)
		t.maxes[d] = make(map[types.Subject]float64)
		for s, byQuestion := range bySubject {
			t.weights[d][s] = make(map[int]float64, len(byQuestion))
			for number, tally := range byQuestion {
				w := fn(tally.Correct, tally.Total)
				t.weights[d][s][number] = w
				t.maxes[d][s] += w
			}
		}
	}
	return t
}

// Weight returns the correction weight for a question, defaulting to 1 when
// the population never saw it.
func (t *CorrectionTable) Weight(d types.Division, s types.Subject, question int) float64 {
	if w, ok := t.weights[d][s][question]; ok {
		return w
	}
	return 1
}

// Max returns the maximum attainable weighted score for a (division,
// subject), or 0 when no question was tallied.
func (t *CorrectionTable) Max(d types.Division, s types.Subject) float64 {
	return t.maxes[d][s]
}
