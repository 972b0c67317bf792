package season

import (
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/normalize"
)

func init() {
	Register("vintage", NewVintage)
}

// lambdaVintage scales the raw log-ratio correction weight in the older
// ruleset.
const lambdaVintage = 0.5

// NewVintage builds the older ruleset: lambda-scaled log correction weights,
// a logistic fit across subjects for the individual score, and a linear blend
// of Z-scored categories for the final team score.
func NewVintage(roster *model.Roster, store repository.Store, opts ...Option) (*Grader, error) {
	params := Params{
		Subject1Round:  RefSubject1,
		Subject2Round:  RefSubject2,
		TeamRound:      RefTeam,
		GutsRound:      RefGuts,
		Weight:         normalize.LambdaLog(lambdaVintage),
		TargetQuantile: normalize.DefaultTargetQuantile,
		FinalWeights: map[string]float64{
			CategoryIndividual: 0.4,
			CategoryTeam:       0.3,
			CategoryGuts:       0.3,
		},
		Individual: IndividualLogistic,
		Final:      FinalLinear,
	}
	g := newGrader(params, roster, store, opts...)
	g.registerSubjectGraders()
	g.registerEstimationGrader()
	return g, nil
}
