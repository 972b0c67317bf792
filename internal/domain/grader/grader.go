// Package grader dispatches scoring logic per question and per round.
//
// Competition seasons override the generic scoring function for subsets of
// questions or rounds by registering predicates; predicates are evaluated
// once against the roster's static question/round sets, producing plain
// id -> handler maps. Resolution falls back to the defaults.
package grader

import (
	"context"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// QuestionGrader scores one answer to one question.
type QuestionGrader func(q model.Question, a model.Answer) float64

// RoundGrader scores a full round into a division-partitioned score map.
// A nil map with nil error signals "not applicable".
type RoundGrader func(ctx context.Context, r model.Round) (types.ScoreMap, error)

// QuestionPredicate selects questions at registration time.
type QuestionPredicate func(q model.Question) bool

// RoundPredicate selects rounds at registration time.
type RoundPredicate func(r model.Round) bool

// Predicate helpers covering the common registrations.

// InRound matches questions belonging to the round with the given ref.
func InRound(ref string) QuestionPredicate {
	return func(q model.Question) bool { return q.RoundRef == ref }
}

// OfType matches questions of the given type.
func OfType(t model.QuestionType) QuestionPredicate {
	return func(q model.Question) bool { return q.Type == t }
}

// RoundRef matches the round with the given ref.
func RoundRef(ref string) RoundPredicate {
	return func(r model.Round) bool { return r.Ref == ref }
}

// Engine grades rounds for one competition roster.
type Engine struct {
	roster *model.Roster
	store  repository.Store
	log    logger.Logger

	questionGraders map[string]QuestionGrader
	roundGraders    map[string]RoundGrader
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates a grading engine over a roster and an answer store.
func NewEngine(roster *model.Roster, store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		roster:          roster,
		store:           store,
		questionGraders: make(map[string]QuestionGrader),
		roundGraders:    make(map[string]RoundGrader),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("grader")
	}
	return e
}

// Roster returns the roster the engine grades against.
func (e *Engine) Roster() *model.Roster { return e.roster }

// Store returns the engine's answer store.
func (e *Engine) Store() repository.Store { return e.store }

// RegisterQuestionGrader binds fn to every question matching pred. A
// predicate matching nothing is not an error; the function is simply unused.
// The last registration for a question wins.
func (e *Engine) RegisterQuestionGrader(pred QuestionPredicate, fn QuestionGrader) {
	for _, round := range e.roster.Competition().Rounds {
		for _, q := range round.Questions {
			if pred(q) {
				e.questionGraders[q.ID] = fn
			}
		}
	}
}

// RegisterRoundGrader binds fn to every round matching pred.
func (e *Engine) RegisterRoundGrader(pred RoundPredicate, fn RoundGrader) {
	for _, round := range e.roster.Competition().Rounds {
		if pred(round) {
			e.roundGraders[round.ID] = fn
		}
	}
}

// QuestionGraderFor resolves the grader for a question, defaulting to
// DefaultQuestionGrader.
func (e *Engine) QuestionGraderFor(q model.Question) QuestionGrader {
	if fn, ok := e.questionGraders[q.ID]; ok {
		return fn
	}
	return DefaultQuestionGrader
}

// RoundGraderFor resolves the grader for a round, defaulting to the engine's
// DefaultRoundGrader.
func (e *Engine) RoundGraderFor(r model.Round) RoundGrader {
	if fn, ok := e.roundGraders[r.ID]; ok {
		return fn
	}
	return e.DefaultRoundGrader
}

// DefaultQuestionGrader scores weight x value, counting ungraded answers as
// zero.
func DefaultQuestionGrader(q model.Question, a model.Answer) float64 {
	return q.Weight * a.ValueOrZero()
}

// DefaultRoundGrader iterates the participant collection selected by the
// round's grouping, sums per-question grades over existing answers, and
// buckets results by division. Every eligible participant appears in the
// result, scoring zero when no answers exist.
func (e *Engine) DefaultRoundGrader(ctx context.Context, r model.Round) (types.ScoreMap, error) {
	switch r.Grouping {
	case model.GroupingIndividual:
		return e.gradeParticipants(ctx, r, e.individualRefs())
	case model.GroupingTeam:
		return e.gradeParticipants(ctx, r, e.teamRefs())
	default:
		e.log.Warn(ctx, "round has unrecognized grouping; not applicable",
			logger.String("round", r.Ref), logger.Int("grouping", int(r.Grouping)))
		return nil, nil
	}
}

func (e *Engine) individualRefs() []model.ParticipantRef {
	students := e.roster.AttendingStudents()
	refs := make([]model.ParticipantRef, 0, len(students))
	for _, s := range students {
		refs = append(refs, model.StudentRef(s.ID))
	}
	return refs
}

func (e *Engine) teamRefs() []model.ParticipantRef {
	teams := e.roster.Teams()
	refs := make([]model.ParticipantRef, 0, len(teams))
	for _, t := range teams {
		refs = append(refs, model.TeamRef(t.ID))
	}
	return refs
}

func (e *Engine) gradeParticipants(ctx context.Context, r model.Round, refs []model.ParticipantRef) (types.ScoreMap, error) {
	scores := make(types.ScoreMap)
	for _, ref := range refs {
		score := 0.0
		for _, q := range r.Questions {
			a, ok, err := e.store.Answer(ctx, q.ID, ref)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			score += e.QuestionGraderFor(q)(q, a)
		}
		division, ok := e.roster.DivisionOf(ref)
		if !ok {
			// Roster guarantees the partition; a miss here is a data bug.
			e.log.Warn(ctx, "participant has no division; dropped",
				logger.String("participant", ref.Key()))
			continue
		}
		scores.Set(division, ref.Key(), score)
	}
	return scores, nil
}

// GradeRound grades one round through its registered or default grader.
func (e *Engine) GradeRound(ctx context.Context, r model.Round) (types.ScoreMap, error) {
	start := time.Now()
	scores, err := e.RoundGraderFor(r)(ctx, r)
	if err != nil {
		return nil, err
	}
	metrics.RecordRoundGraded(r.Ref)
	metrics.RecordGradingDuration(time.Since(start).Seconds())
	if scores != nil {
		metrics.UpdateParticipants(scores.Participants())
	}
	return scores, nil
}

// GradeCompetition grades every round of the competition, keyed by round ref.
// Rounds whose grader reports "not applicable" are omitted.
func (e *Engine) GradeCompetition(ctx context.Context) (map[string]types.ScoreMap, error) {
	results := make(map[string]types.ScoreMap)
	for _, round := range e.roster.Competition().Rounds {
		scores, err := e.GradeRound(ctx, round)
		if err != nil {
			return nil, err
		}
		if scores != nil {
			results[round.Ref] = scores
		}
	}
	return results, nil
}

// EnsureRoundAnswers creates blank answer rows for every eligible
// participant/question pair in the round so a grading sheet can be edited.
// Kept separate from grading: reading scores never writes.
func (e *Engine) EnsureRoundAnswers(ctx context.Context, r model.Round) error {
	var refs []model.ParticipantRef
	switch r.Grouping {
	case model.GroupingIndividual:
		refs = e.individualRefs()
	case model.GroupingTeam:
		refs = e.teamRefs()
	default:
		return nil
	}
	for _, ref := range refs {
		for _, q := range r.Questions {
			if _, err := e.store.EnsureAnswer(ctx, q.ID, ref); err != nil {
				return err
			}
			metrics.RecordPlaceholderCreated()
		}
	}
	return nil
}
