package season

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/podium/internal/cache"
	"github.com/okian/podium/internal/domain/blend"
	"github.com/okian/podium/internal/domain/estimation"
	"github.com/okian/podium/internal/domain/grader"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/normalize"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

// Cache entry names. Raw entries hold unscaled round totals stashed while
// computing their scaled siblings; live entries are read with a staleness
// window instead of the plain hit-or-compute rule.
const (
	nameIndividualScores = "individual_scores"
	nameSubjectScores    = "subject_scores"
	nameTeamScores       = "team_scores"
	nameRawTeamScores    = "raw_team_scores"
	nameGutsScores       = "guts_scores"
	nameRawGutsScores    = "raw_guts_scores"
	nameLiveGutsScores   = "live_guts_scores"
	nameTeamIndividual   = "team_individual_scores"
	nameFinalScores      = "final_scores"
)

// individualCeiling is the largest individual score either strategy can
// produce: two subjects, each contributing at most 1 after normalization.
// Team aggregates divide by it so the blend sees values in [0, 1].
const individualCeiling = 2

// SubjectBreakdown holds calibrated per-subject scores:
// division -> subject -> student key -> score in [0, 1].
type SubjectBreakdown map[types.Division]map[types.Subject]map[string]float64

func (b SubjectBreakdown) set(d types.Division, s types.Subject, key string, score float64) {
	bySubject, ok := b[d]
	if !ok {
		bySubject = make(map[types.Subject]map[string]float64)
		b[d] = bySubject
	}
	byStudent, ok := bySubject[s]
	if !ok {
		byStudent = make(map[string]float64)
		bySubject[s] = byStudent
	}
	byStudent[key] = score
}

// registerSubjectGraders hooks the correction-weighted grader onto both
// subject rounds. The closures read the correction table lazily so the table
// can be rebuilt on every recomputation without re-registering.
func (g *Grader) registerSubjectGraders() {
	g.engine.RegisterQuestionGrader(grader.InRound(g.params.Subject1Round), g.subjectQuestionGrader(0))
	g.engine.RegisterQuestionGrader(grader.InRound(g.params.Subject2Round), g.subjectQuestionGrader(1))
}

// registerEstimationGrader routes estimation questions through the
// closeness-credit formulas.
func (g *Grader) registerEstimationGrader() {
	g.engine.RegisterQuestionGrader(grader.OfType(model.TypeEstimation), estimation.Credit)
}

func (g *Grader) correctionTable() *normalize.CorrectionTable {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.table
}

func (g *Grader) setCorrectionTable(t *normalize.CorrectionTable) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.table = t
}

// subjectQuestionGrader scores weight x value x correction. Before the table
// exists (or for answers that cannot be attributed to an attending student's
// division) the correction factor is neutral.
func (g *Grader) subjectQuestionGrader(slot int) grader.QuestionGrader {
	return func(q model.Question, a model.Answer) float64 {
		base := q.Weight * a.ValueOrZero()
		table := g.correctionTable()
		if table == nil {
			return base
		}
		subject, ok := g.roster.SubjectInSlot(a.Participant.StudentID, slot)
		if !ok {
			return base
		}
		division, ok := g.roster.DivisionOfStudent(a.Participant.StudentID)
		if !ok {
			return base
		}
		return base * table.Weight(division, subject, q.Number)
	}
}

// buildCorrectionTable tallies correctness per (division, subject, question)
// over both subject rounds and derives weights with the season's transform.
// Only attending students count toward the population.
func (g *Grader) buildCorrectionTable(ctx context.Context) (*normalize.CorrectionTable, error) {
	rounds, err := g.subjectRounds()
	if err != nil {
		return nil, err
	}
	tallies := make(normalize.TallySet)
	for slot, round := range rounds {
		for _, q := range round.Questions {
			answers, err := g.engine.Store().AnswersForQuestion(ctx, q.ID)
			if err != nil {
				return nil, err
			}
			for _, a := range answers {
				student, ok := g.roster.Student(a.Participant.StudentID)
				if !ok || !student.Attending {
					continue
				}
				division, ok := g.roster.DivisionOfStudent(student.ID)
				if !ok {
					continue
				}
				subject, _ := g.roster.SubjectInSlot(student.ID, slot)
				tallies.Add(division, subject, q.Number, a.ValueOrZero())
			}
		}
	}
	return normalize.BuildCorrectionTable(tallies, g.params.Weight), nil
}

// IndividualScores computes each attending student's combined score over
// their two subjects, bucketed by division. Students missing either subject
// round are excluded; a half-present score would rank meaninglessly.
func (g *Grader) IndividualScores(ctx context.Context, opts cache.Options) (types.ScoreMap, error) {
	return cache.GetOrCompute(ctx, g.cache, nameIndividualScores, opts, g.computeIndividualScores)
}

func (g *Grader) computeIndividualScores(ctx context.Context) (types.ScoreMap, error) {
	table, err := g.buildCorrectionTable(ctx)
	if err != nil {
		return nil, err
	}
	g.setCorrectionTable(table)

	rounds, err := g.subjectRounds()
	if err != nil {
		return nil, err
	}

	// Normalized per-slot scores: slot -> division -> student key -> score
	// in [0, 1], raw weighted score over the division/subject maximum.
	var normalized [2]types.ScoreMap
	for slot, round := range rounds {
		raw, err := g.engine.GradeRound(ctx, round)
		if err != nil {
			return nil, fmt.Errorf("grading %s: %w", round.Ref, err)
		}
		normalized[slot] = make(types.ScoreMap, len(raw))
		for division, bucket := range raw {
			for key, score := range bucket {
				subject, ok := g.subjectOfKey(key, slot)
				if !ok {
					continue
				}
				max := table.Max(division, subject)
				if max <= 0 {
					continue
				}
				normalized[slot].Set(division, key, score/max)
			}
		}
	}

	var (
		scores    types.ScoreMap
		breakdown SubjectBreakdown
	)
	switch g.params.Individual {
	case IndividualLogistic:
		scores, breakdown, err = g.combineLogistic(normalized)
	default:
		scores, breakdown, err = g.combinePowerMean(ctx, normalized)
	}
	if err != nil {
		return nil, err
	}
	g.cache.Set(nameSubjectScores, breakdown)
	return scores, nil
}

func (g *Grader) subjectOfKey(key string, slot int) (types.Subject, bool) {
	ref, ok := model.ParseKey(key)
	if !ok || ref.StudentID == "" {
		return "", false
	}
	return g.roster.SubjectInSlot(ref.StudentID, slot)
}

// combinePowerMean calibrates one exponent per (division, subject) so the
// population mean of score^p hits the target quantile, then sums the two
// calibrated subject scores per student.
func (g *Grader) combinePowerMean(ctx context.Context, normalized [2]types.ScoreMap) (types.ScoreMap, SubjectBreakdown, error) {
	samples := make(map[types.Division]map[types.Subject][]float64)
	for slot := 0; slot < 2; slot++ {
		for division, bucket := range normalized[slot] {
			bySubject, ok := samples[division]
			if !ok {
				bySubject = make(map[types.Subject][]float64)
				samples[division] = bySubject
			}
			for key, score := range bucket {
				subject, ok := g.subjectOfKey(key, slot)
				if !ok {
					continue
				}
				bySubject[subject] = append(bySubject[subject], score)
			}
		}
	}

	exponents := make(map[types.Division]map[types.Subject]float64)
	for division, bySubject := range samples {
		exponents[division] = make(map[types.Subject]float64, len(bySubject))
		for subject, xs := range bySubject {
			p, err := normalize.PowerMeanExponent(xs, g.params.TargetQuantile)
			if err != nil {
				return nil, nil, fmt.Errorf("calibrating %s/%s: %w", g.roster.DivisionName(division), subject, err)
			}
			exponents[division][subject] = p
			g.log.Debug(ctx, "calibrated subject exponent",
				logger.String("division", g.roster.DivisionName(division)),
				logger.String("subject", string(subject)),
				logger.Float64("exponent", p))
		}
	}

	scores := make(types.ScoreMap)
	breakdown := make(SubjectBreakdown)
	for division, bucket := range normalized[0] {
		for key, s1 := range bucket {
			s2, ok := normalized[1].Get(division, key)
			if !ok {
				continue
			}
			subject1, ok1 := g.subjectOfKey(key, 0)
			subject2, ok2 := g.subjectOfKey(key, 1)
			if !ok1 || !ok2 {
				continue
			}
			c1 := powClamped(s1, exponents[division][subject1])
			c2 := powClamped(s2, exponents[division][subject2])
			breakdown.set(division, subject1, key, c1)
			breakdown.set(division, subject2, key, c2)
			scores.Set(division, key, c1+c2)
		}
	}
	return scores, breakdown, nil
}

func powClamped(s, p float64) float64 {
	if s <= 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	return math.Pow(s, p)
}

// combineLogistic fits logistic parameters per subject within each division
// and sums the two transformed subject scores per student.
func (g *Grader) combineLogistic(normalized [2]types.ScoreMap) (types.ScoreMap, SubjectBreakdown, error) {
	subjects := g.roster.Competition().Subjects
	categories := make([]string, len(subjects))
	for i, s := range subjects {
		categories[i] = string(s)
	}

	obs := make(map[types.Division]blend.Observations)
	for slot := 0; slot < 2; slot++ {
		for division, bucket := range normalized[slot] {
			divisionObs, ok := obs[division]
			if !ok {
				divisionObs = make(blend.Observations)
				obs[division] = divisionObs
			}
			for key, score := range bucket {
				subject, ok := g.subjectOfKey(key, slot)
				if !ok {
					continue
				}
				byCategory, ok := divisionObs[key]
				if !ok {
					byCategory = make(map[string]float64, 2)
					divisionObs[key] = byCategory
				}
				byCategory[string(subject)] = score
			}
		}
	}
	// Drop students with only one subject recorded.
	for _, divisionObs := range obs {
		for key, byCategory := range divisionObs {
			if len(byCategory) < 2 {
				delete(divisionObs, key)
			}
		}
	}

	scores, err := blend.LogisticPerDivision(categories, nil, obs)
	if err != nil {
		return nil, nil, fmt.Errorf("fitting subject blend: %w", err)
	}

	breakdown := make(SubjectBreakdown)
	for division, divisionObs := range obs {
		for key, byCategory := range divisionObs {
			for category, s := range byCategory {
				breakdown.set(division, types.Subject(category), key, s)
			}
		}
	}
	return scores, breakdown, nil
}

// SubjectScores returns the calibrated per-subject breakdown, computing the
// individual pipeline first when needed.
func (g *Grader) SubjectScores(ctx context.Context, opts cache.Options) (SubjectBreakdown, error) {
	if _, err := g.IndividualScores(ctx, opts); err != nil {
		return nil, err
	}
	breakdown, ok := cache.Lookup[SubjectBreakdown](g.cache, nameSubjectScores)
	if !ok {
		return SubjectBreakdown{}, nil
	}
	return breakdown, nil
}

// gradeScaledRound grades a round, stashes the raw totals under rawName, and
// returns totals scaled into [0, 1] by the round's maximum attainable score.
func (g *Grader) gradeScaledRound(ctx context.Context, roundRef, rawName string) (types.ScoreMap, error) {
	round, err := g.round(roundRef)
	if err != nil {
		return nil, err
	}
	raw, err := g.engine.GradeRound(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("grading %s: %w", round.Ref, err)
	}
	g.cache.Set(rawName, raw)
	max := 0.0
	for _, q := range round.Questions {
		max += q.Weight
	}
	if max <= 0 {
		return raw, nil
	}
	return raw.Scale(1 / max), nil
}

// TeamRoundScores computes per-team scores for the team round, scaled to
// [0, 1].
func (g *Grader) TeamRoundScores(ctx context.Context, opts cache.Options) (types.ScoreMap, error) {
	return cache.GetOrCompute(ctx, g.cache, nameTeamScores, opts, func(ctx context.Context) (types.ScoreMap, error) {
		return g.gradeScaledRound(ctx, g.params.TeamRound, nameRawTeamScores)
	})
}

// GutsRoundScores computes per-team scores for the guts round, scaled to
// [0, 1].
func (g *Grader) GutsRoundScores(ctx context.Context, opts cache.Options) (types.ScoreMap, error) {
	return cache.GetOrCompute(ctx, g.cache, nameGutsScores, opts, func(ctx context.Context) (types.ScoreMap, error) {
		return g.gradeScaledRound(ctx, g.params.GutsRound, nameRawGutsScores)
	})
}

// LiveGutsScores returns raw running guts totals for the live scoreboard,
// recomputed at most once per window.
func (g *Grader) LiveGutsScores(ctx context.Context, window time.Duration) (types.ScoreMap, error) {
	return cache.GetOrCompute(ctx, g.cache, nameLiveGutsScores, cache.Options{Refresh: true, MaxAge: window},
		func(ctx context.Context) (types.ScoreMap, error) {
			round, err := g.round(g.params.GutsRound)
			if err != nil {
				return nil, err
			}
			return g.engine.GradeRound(ctx, round)
		})
}

// TeamIndividualScores aggregates individual scores per team: the mean over
// the team's attending students that have an individual score, divided by the
// individual ceiling so the result lands in [0, 1]. Teams with no scored
// students get zero.
func (g *Grader) TeamIndividualScores(ctx context.Context, opts cache.Options) (types.ScoreMap, error) {
	return cache.GetOrCompute(ctx, g.cache, nameTeamIndividual, opts, func(ctx context.Context) (types.ScoreMap, error) {
		individual, err := g.IndividualScores(ctx, opts)
		if err != nil {
			return nil, err
		}
		scores := make(types.ScoreMap)
		for _, team := range g.roster.Teams() {
			sum, n := 0.0, 0
			for _, student := range g.roster.StudentsOfTeam(team.ID) {
				if !student.Attending {
					continue
				}
				s, ok := individual.Get(team.Division, model.StudentRef(student.ID).Key())
				if !ok {
					continue
				}
				sum += s
				n++
			}
			score := 0.0
			if n > 0 {
				score = sum / float64(n) / individualCeiling
			}
			scores.Set(team.Division, model.TeamRef(team.ID).Key(), score)
		}
		return scores, nil
	})
}

// FinalScores blends the three team-level categories into the final team
// score per division.
func (g *Grader) FinalScores(ctx context.Context, opts cache.Options) (types.ScoreMap, error) {
	return cache.GetOrCompute(ctx, g.cache, nameFinalScores, opts, func(ctx context.Context) (types.ScoreMap, error) {
		individual, err := g.TeamIndividualScores(ctx, opts)
		if err != nil {
			return nil, err
		}
		team, err := g.TeamRoundScores(ctx, opts)
		if err != nil {
			return nil, err
		}
		guts, err := g.GutsRoundScores(ctx, opts)
		if err != nil {
			return nil, err
		}
		categoryMaps := map[string]types.ScoreMap{
			CategoryIndividual: individual,
			CategoryTeam:       team,
			CategoryGuts:       guts,
		}
		if g.params.Final == FinalLinear {
			for category, m := range categoryMaps {
				categoryMaps[category] = normalize.ZScoreMap(m)
			}
			return blend.LinearPerDivision(g.params.FinalWeights, buildObservations(categoryMaps)), nil
		}
		categories := []string{CategoryIndividual, CategoryTeam, CategoryGuts}
		scores, err := blend.LogisticPerDivision(categories, g.params.FinalWeights, buildObservations(categoryMaps))
		if err != nil {
			return nil, fmt.Errorf("fitting final blend: %w", err)
		}
		return scores, nil
	})
}

// buildObservations pivots category score maps into per-division
// participant -> category -> score observations. Missing categories stay
// missing; the blends treat them as absent rather than zero.
func buildObservations(categoryMaps map[string]types.ScoreMap) map[types.Division]blend.Observations {
	out := make(map[types.Division]blend.Observations)
	for category, m := range categoryMaps {
		for division, bucket := range m {
			divisionObs, ok := out[division]
			if !ok {
				divisionObs = make(blend.Observations)
				out[division] = divisionObs
			}
			for key, score := range bucket {
				byCategory, ok := divisionObs[key]
				if !ok {
					byCategory = make(map[string]float64, len(categoryMaps))
					divisionObs[key] = byCategory
				}
				byCategory[category] = score
			}
		}
	}
	return out
}
