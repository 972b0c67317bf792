// Package season holds competition-specific grading schemes.
//
// Each season wires question and round graders into the generic engine and
// composes the normalization pipeline: correction weights, subject-score
// calibration, and the final category blend. Seasons register themselves by
// name in an explicit registry; the service resolves the configured season
// at startup, never by dynamic loading.
package season

import (
	"fmt"
	"sort"
	"sync"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/cache"
	"github.com/okian/podium/internal/domain/grader"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/normalize"
	"github.com/okian/podium/pkg/logger"
)

// Score categories blended into the final team ranking.
const (
	CategoryIndividual = "indiv"
	CategoryTeam       = "team"
	CategoryGuts       = "guts"
)

// Round refs every season is expected to provide.
const (
	RefSubject1 = "subject1"
	RefSubject2 = "subject2"
	RefTeam     = "team"
	RefGuts     = "guts"
)

// IndividualStrategy selects how the two subject scores become one
// individual score.
type IndividualStrategy string

const (
	// IndividualPowerMean calibrates one exponent per (division, subject)
	// and sums normalized^exponent over the student's two subjects.
	IndividualPowerMean IndividualStrategy = "powermean"
	// IndividualLogistic fits logistic parameters per subject and sums the
	// transformed normalized scores.
	IndividualLogistic IndividualStrategy = "logistic"
)

// FinalStrategy selects how the three category scores blend per team.
type FinalStrategy string

const (
	// FinalLogistic fits logistic parameters across categories.
	FinalLogistic FinalStrategy = "logistic"
	// FinalLinear blends Z-scored categories with fixed weights.
	FinalLinear FinalStrategy = "linear"
)

// Params configure a season grader.
type Params struct {
	Subject1Round string
	Subject2Round string
	TeamRound     string
	GutsRound     string

	// Weight derives per-question correction weights from correctness
	// tallies.
	Weight normalize.WeightFunc

	// TargetQuantile is the power-mean calibration target.
	TargetQuantile float64

	// FinalWeights weight the indiv/team/guts categories in the final blend.
	FinalWeights map[string]float64

	Individual IndividualStrategy
	Final      FinalStrategy
}

// Grader grades one competition under one season's rules. It owns a result
// cache scoped to its lifetime; constructing a new grader (competition
// change, season change) starts from a cold cache.
type Grader struct {
	params Params
	roster *model.Roster
	engine *grader.Engine
	cache  *cache.Cache
	log    logger.Logger

	mu    sync.Mutex
	table *normalize.CorrectionTable
}

// Option applies a configuration option to the Grader.
type Option func(*Grader)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(g *Grader) {
		if log != nil {
			g.log = log
		}
	}
}

// WithTargetQuantile overrides the power-mean calibration target.
func WithTargetQuantile(q float64) Option {
	return func(g *Grader) {
		if q > 0 && q < 1 {
			g.params.TargetQuantile = q
		}
	}
}

// WithFinalWeights overrides the final category weights.
func WithFinalWeights(w map[string]float64) Option {
	return func(g *Grader) {
		if len(w) > 0 {
			g.params.FinalWeights = w
		}
	}
}

// Constructor builds a season grader over a roster and an answer store.
type Constructor func(roster *model.Roster, store repository.Store, opts ...Option) (*Grader, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register binds a season name to its constructor. Seasons register in
// their init functions; registration happens once at startup.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// New resolves a registered season and builds its grader.
func New(name string, roster *model.Roster, store repository.Store, opts ...Option) (*Grader, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeason, name)
	}
	return ctor(roster, store, opts...)
}

// Seasons lists the registered season names, sorted.
func Seasons() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newGrader wires the common machinery; season constructors add their
// registrations on top.
func newGrader(params Params, roster *model.Roster, store repository.Store, opts ...Option) *Grader {
	g := &Grader{
		params: params,
		roster: roster,
		cache:  cache.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Get().Named("season")
	}
	g.engine = grader.NewEngine(roster, store, grader.WithLogger(g.log))
	return g
}

// CompetitionRef names the competition this grader was built for.
func (g *Grader) CompetitionRef() string {
	return g.roster.Competition().Ref
}

// CheckCompetition rejects requests aimed at a different competition.
// Grading proceeds only against the competition the grader was built for;
// a mismatch is a caller bug, surfaced immediately rather than producing a
// partially-wrong scoreboard.
func (g *Grader) CheckCompetition(ref string) error {
	if ref != "" && ref != g.CompetitionRef() {
		return fmt.Errorf("%w: grader built for %q, asked about %q",
			ErrCompetitionMismatch, g.CompetitionRef(), ref)
	}
	return nil
}

// Engine exposes the underlying grading engine (used for placeholder
// creation and direct round access).
func (g *Grader) Engine() *grader.Engine { return g.engine }

// Cache exposes the grader's result cache for read access to stashed
// intermediates.
func (g *Grader) Cache() *cache.Cache { return g.cache }

func (g *Grader) round(ref string) (model.Round, error) {
	r, ok := g.roster.Round(ref)
	if !ok {
		return model.Round{}, fmt.Errorf("%w: %q", ErrMissingRound, ref)
	}
	return *r, nil
}

func (g *Grader) subjectRounds() ([2]model.Round, error) {
	var out [2]model.Round
	r1, err := g.round(g.params.Subject1Round)
	if err != nil {
		return out, err
	}
	r2, err := g.round(g.params.Subject2Round)
	if err != nil {
		return out, err
	}
	out[0], out[1] = r1, r2
	return out, nil
}
