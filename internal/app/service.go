// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/cache"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/season"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Service grades the active competition and serves its scoreboards.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.RosterStore
	roster *model.Roster
	grader *season.Grader

	// Configuration
	seasonName     string
	liveWindow     time.Duration
	targetQuantile float64
	finalWeights   map[string]float64

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSeason selects the registered season ruleset to grade under.
func WithSeason(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.seasonName = name
		}
	}
}

// WithLiveWindow sets the staleness window for live scoreboard reads.
func WithLiveWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.liveWindow = window
		}
	}
}

// WithRoster supplies a roster directly instead of loading it from the store.
func WithRoster(roster *model.Roster) Option {
	return func(s *Service) {
		s.roster = roster
	}
}

// WithTargetQuantile overrides the individual calibration target.
func WithTargetQuantile(q float64) Option {
	return func(s *Service) {
		if q > 0 && q < 1 {
			s.targetQuantile = q
		}
	}
}

// WithFinalWeights overrides the final blend category weights.
func WithFinalWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.finalWeights = weights
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New creates a service over a roster store with the given options.
func New(store repository.RosterStore, opts ...Option) *Service {
	s := &Service{
		store:      store,
		seasonName: "classic",
		liveWindow: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start loads the active roster (unless one was supplied) and builds the
// season grader. It is not safe to call concurrently with itself.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if s.roster == nil {
		roster, err := s.store.LoadRoster(ctx)
		if err != nil {
			return fmt.Errorf("loading roster: %w", err)
		}
		s.roster = roster
	}

	graderOpts := []season.Option{season.WithLogger(s.logger.Named("season"))}
	if s.targetQuantile > 0 {
		graderOpts = append(graderOpts, season.WithTargetQuantile(s.targetQuantile))
	}
	if s.finalWeights != nil {
		graderOpts = append(graderOpts, season.WithFinalWeights(s.finalWeights))
	}
	grader, err := season.New(s.seasonName, s.roster, s.store, graderOpts...)
	if err != nil {
		return fmt.Errorf("building season grader: %w", err)
	}
	s.grader = grader
	s.started = true
	s.startedAt = time.Now()

	s.logger.Info(ctx, "service started",
		logger.String("competition", s.roster.Competition().Ref),
		logger.String("season", s.seasonName),
		logger.Int("teams", len(s.roster.Teams())))
	return nil
}

// Stop releases the grader. Cached results are discarded with it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.grader = nil
	s.started = false
}

func (s *Service) activeGrader() (*season.Grader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.grader == nil {
		return nil, ErrNotStarted
	}
	return s.grader, nil
}

// TeamScoreboard returns the final blended team standings per division.
func (s *Service) TeamScoreboard(ctx context.Context, refresh bool) (types.Scoreboard, error) {
	g, err := s.activeGrader()
	if err != nil {
		return nil, err
	}
	scores, err := g.FinalScores(ctx, cache.Options{Refresh: refresh})
	if err != nil {
		return nil, err
	}
	return s.rank(scores), nil
}

// IndividualScoreboard returns the combined individual standings per division.
func (s *Service) IndividualScoreboard(ctx context.Context, refresh bool) (types.Scoreboard, error) {
	g, err := s.activeGrader()
	if err != nil {
		return nil, err
	}
	scores, err := g.IndividualScores(ctx, cache.Options{Refresh: refresh})
	if err != nil {
		return nil, err
	}
	return s.rank(scores), nil
}

// SubjectScoreboards returns per-subject individual standings per division.
func (s *Service) SubjectScoreboards(ctx context.Context, refresh bool) (types.SubjectScoreboards, error) {
	g, err := s.activeGrader()
	if err != nil {
		return nil, err
	}
	breakdown, err := g.SubjectScores(ctx, cache.Options{Refresh: refresh})
	if err != nil {
		return nil, err
	}
	out := make(types.SubjectScoreboards, len(breakdown))
	for division, bySubject := range breakdown {
		name := s.roster.DivisionName(division)
		out[name] = make(map[string][]types.Standing, len(bySubject))
		for subject, bucket := range bySubject {
			out[name][string(subject)] = types.Rank(bucket, s.nameOf)
		}
	}
	return out, nil
}

// LiveGutsScoreboard returns raw running guts totals per division, recomputed
// at most once per live window.
func (s *Service) LiveGutsScoreboard(ctx context.Context) (types.Scoreboard, error) {
	g, err := s.activeGrader()
	if err != nil {
		return nil, err
	}
	scores, err := g.LiveGutsScores(ctx, s.liveWindow)
	if err != nil {
		return nil, err
	}
	return s.rank(scores), nil
}

// SubmitScore records a graded value for one question and participant.
// Scoreboards do not react until the next recomputation.
func (s *Service) SubmitScore(ctx context.Context, questionID string, ref model.ParticipantRef, value *float64) error {
	if _, err := s.activeGrader(); err != nil {
		return err
	}
	if !ref.Valid() {
		return fmt.Errorf("%w: exactly one of student or team must be set", ErrInvalidParticipant)
	}
	q, ok := s.roster.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, questionID)
	}
	if _, ok := s.roster.DivisionOf(ref); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidParticipant, ref.Key())
	}
	if err := s.store.SetValue(ctx, q.ID, ref, value); err != nil {
		return fmt.Errorf("storing answer: %w", err)
	}
	metrics.RecordAnswerSubmitted()
	return nil
}

// PrepareRound creates blank answer rows for every eligible participant and
// question of a round so graders can fill in a complete sheet.
func (s *Service) PrepareRound(ctx context.Context, roundRef string) error {
	g, err := s.activeGrader()
	if err != nil {
		return err
	}
	round, ok := s.roster.Round(roundRef)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRound, roundRef)
	}
	return g.Engine().EnsureRoundAnswers(ctx, *round)
}

// Recalculate forces a full recomputation of every cached aggregate.
func (s *Service) Recalculate(ctx context.Context) error {
	g, err := s.activeGrader()
	if err != nil {
		return err
	}
	start := time.Now()
	if _, err := g.FinalScores(ctx, cache.Options{Refresh: true}); err != nil {
		return err
	}
	s.logger.Info(ctx, "recalculated all aggregates",
		logger.Duration("took", time.Since(start)))
	return nil
}

// GetStats reports roster counts and run metadata.
func (s *Service) GetStats(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	c := s.roster.Competition()
	students := 0
	for _, t := range s.roster.Teams() {
		students += len(s.roster.StudentsOfTeam(t.ID))
	}
	return map[string]any{
		"competition": c.Ref,
		"season":      s.seasonName,
		"teams":       len(s.roster.Teams()),
		"students":    students,
		"rounds":      len(c.Rounds),
		"started_at":  s.startedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) rank(scores types.ScoreMap) types.Scoreboard {
	out := make(types.Scoreboard, len(scores))
	for division, bucket := range scores {
		out[s.roster.DivisionName(division)] = types.Rank(bucket, s.nameOf)
	}
	return out
}

func (s *Service) nameOf(key string) string {
	ref, ok := model.ParseKey(key)
	if !ok {
		return key
	}
	return s.roster.NameOf(ref)
}
