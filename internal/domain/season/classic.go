package season

import (
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/normalize"
)

func init() {
	Register("classic", NewClassic)
}

// NewClassic builds the current ruleset: smoothed-log correction weights,
// power-mean individual calibration, and a logistic final blend weighted
// individual 50, team 25, guts 25.
func NewClassic(roster *model.Roster, store repository.Store, opts ...Option) (*Grader, error) {
	params := Params{
		Subject1Round:  RefSubject1,
		Subject2Round:  RefSubject2,
		TeamRound:      RefTeam,
		GutsRound:      RefGuts,
		Weight:         normalize.SmoothedLog,
		TargetQuantile: normalize.DefaultTargetQuantile,
		FinalWeights: map[string]float64{
			CategoryIndividual: 50,
			CategoryTeam:       25,
			CategoryGuts:       25,
		},
		Individual: IndividualPowerMean,
		Final:      FinalLogistic,
	}
	g := newGrader(params, roster, store, opts...)
	g.registerSubjectGraders()
	g.registerEstimationGrader()
	return g, nil
}
