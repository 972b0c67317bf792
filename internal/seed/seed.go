// Package seed generates a demo competition with plausible answer data so
// the service can be exercised without real grading sheets.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/estimation"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

// Config controls demo data generation.
type Config struct {
	// DBPath is the SQLite file to write into.
	DBPath string
	// Teams is the number of teams to generate, split across two divisions.
	Teams int
	// StudentsPerTeam is the roster size per team.
	StudentsPerTeam int
	// Rand seeds the generator for reproducible data sets.
	Rand int64
	// CompetitionRef names the generated competition.
	CompetitionRef string
}

const (
	subjectQuestions = 8
	teamQuestions    = 10
	gutsQuestions    = 24
)

var subjects = []types.Subject{"algebra", "geometry", "combinatorics", "number_theory"}

// Run builds a demo roster, saves it as the active competition, and fills in
// randomized answers for every round.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("seed")
	rng := rand.New(rand.NewSource(cfg.Rand))

	store, err := repository.OpenSQLStore(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = store.Close() }()

	roster, err := BuildRoster(cfg.CompetitionRef, cfg.Teams, cfg.StudentsPerTeam, rng)
	if err != nil {
		return err
	}
	if err := store.SaveRoster(ctx, roster); err != nil {
		return fmt.Errorf("saving roster: %w", err)
	}
	log.Info(ctx, "saved demo roster",
		logger.String("competition", cfg.CompetitionRef),
		logger.Int("teams", cfg.Teams))

	// Per-student and per-team ability drives answer simulation so the
	// correction weights have real variance to work with.
	skill := make(map[string]float64)
	for _, t := range roster.Teams() {
		skill[t.ID] = 0.25 + 0.6*rng.Float64()
		for _, s := range roster.StudentsOfTeam(t.ID) {
			skill[s.ID] = 0.15 + 0.75*rng.Float64()
		}
	}

	answers := 0
	for _, round := range roster.Competition().Rounds {
		n, err := fillRound(ctx, store, roster, round, skill, rng)
		if err != nil {
			return fmt.Errorf("filling %s: %w", round.Ref, err)
		}
		answers += n
	}
	log.Info(ctx, "generated answers", logger.Int("count", answers))
	return nil
}

// BuildRoster constructs the demo competition definition. Teams alternate
// between two divisions; each student draws two distinct subjects.
func BuildRoster(ref string, teamCount, studentsPerTeam int, rng *rand.Rand) (*model.Roster, error) {
	competition := model.Competition{
		ID:        uuid.NewString(),
		Ref:       ref,
		Name:      "Demo Competition",
		Active:    true,
		Divisions: []types.Division{1, 2},
		DivisionNames: map[types.Division]string{
			1: "Pascal",
			2: "Ramanujan",
		},
		Subjects: subjects,
		Rounds: []model.Round{
			individualRound("subject1", "Subject Test 1"),
			individualRound("subject2", "Subject Test 2"),
			teamRound(),
			gutsRound(),
		},
	}

	teams := make([]model.Team, 0, teamCount)
	students := make([]model.Student, 0, teamCount*studentsPerTeam)
	for i := 0; i < teamCount; i++ {
		team := model.Team{
			ID:       uuid.NewString(),
			Name:     fmt.Sprintf("Team %d", i+1),
			Number:   i + 1,
			School:   fmt.Sprintf("School %c", 'A'+i%6),
			Division: types.Division(1 + i%2),
		}
		teams = append(teams, team)
		for j := 0; j < studentsPerTeam; j++ {
			s1 := subjects[rng.Intn(len(subjects))]
			s2 := s1
			for s2 == s1 {
				s2 = subjects[rng.Intn(len(subjects))]
			}
			students = append(students, model.Student{
				ID:        uuid.NewString(),
				Name:      fmt.Sprintf("Student %d-%d", i+1, j+1),
				TeamID:    team.ID,
				Subject1:  s1,
				Subject2:  s2,
				Attending: rng.Float64() > 0.05,
			})
		}
	}
	return model.NewRoster(competition, teams, students)
}

func individualRound(ref, name string) model.Round {
	r := model.Round{
		ID:       uuid.NewString(),
		Ref:      ref,
		Name:     name,
		Grouping: model.GroupingIndividual,
	}
	for n := 1; n <= subjectQuestions; n++ {
		r.Questions = append(r.Questions, model.Question{
			ID:       uuid.NewString(),
			RoundRef: ref,
			Number:   n,
			Label:    fmt.Sprintf("%d", n),
			Type:     model.TypeCorrect,
			Weight:   1,
		})
	}
	return r
}

func teamRound() model.Round {
	r := model.Round{
		ID:       uuid.NewString(),
		Ref:      "team",
		Name:     "Team Round",
		Grouping: model.GroupingTeam,
	}
	for n := 1; n <= teamQuestions; n++ {
		r.Questions = append(r.Questions, model.Question{
			ID:       uuid.NewString(),
			RoundRef: "team",
			Number:   n,
			Label:    fmt.Sprintf("T%d", n),
			Type:     model.TypeCorrect,
			Weight:   2,
		})
	}
	return r
}

func gutsRound() model.Round {
	r := model.Round{
		ID:       uuid.NewString(),
		Ref:      "guts",
		Name:     "Guts Round",
		Grouping: model.GroupingTeam,
	}
	for n := 1; n <= gutsQuestions-3; n++ {
		r.Questions = append(r.Questions, model.Question{
			ID:       uuid.NewString(),
			RoundRef: "guts",
			Number:   n,
			Label:    fmt.Sprintf("G%d", n),
			Type:     model.TypeCorrect,
			// Later sets are worth more.
			Weight: 1 + float64(n/8),
		})
	}
	// The last set is estimation questions with varied credit formulas.
	references := []float64{6.022e5, 1729, 3.14159}
	specs := []model.EstimationSpec{
		{Kind: estimation.KindLogRatio, Cap: 12},
		{Kind: estimation.KindRelWindow, Scale: 2},
		{Kind: estimation.KindAbsWindow, Cap: 10, Scale: 0.5},
	}
	for i := 0; i < 3; i++ {
		n := gutsQuestions - 2 + i
		ref := references[i]
		spec := specs[i]
		r.Questions = append(r.Questions, model.Question{
			ID:         uuid.NewString(),
			RoundRef:   "guts",
			Number:     n,
			Label:      fmt.Sprintf("G%d", n),
			Type:       model.TypeEstimation,
			Weight:     4,
			Answer:     &ref,
			Estimation: &spec,
		})
	}
	return r
}

func fillRound(ctx context.Context, store repository.Store, roster *model.Roster, round model.Round, skill map[string]float64, rng *rand.Rand) (int, error) {
	var refs []model.ParticipantRef
	switch round.Grouping {
	case model.GroupingIndividual:
		for _, s := range roster.AttendingStudents() {
			refs = append(refs, model.StudentRef(s.ID))
		}
	case model.GroupingTeam:
		for _, t := range roster.Teams() {
			refs = append(refs, model.TeamRef(t.ID))
		}
	}

	count := 0
	for _, ref := range refs {
		ability := skill[ref.StudentID]
		if ref.TeamID != "" {
			ability = skill[ref.TeamID]
		}
		for i, q := range round.Questions {
			// Later questions are harder.
			difficulty := 0.5 + float64(i)/float64(2*len(round.Questions))
			value := simulateAnswer(q, ability/difficulty, rng)
			if err := store.SetValue(ctx, q.ID, ref, &value); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func simulateAnswer(q model.Question, p float64, rng *rand.Rand) float64 {
	if q.Type == model.TypeEstimation && q.Answer != nil {
		// Log-normal noise around the reference, tighter for stronger teams.
		sigma := 1.5 * (1 - math.Min(p, 0.95))
		return *q.Answer * math.Exp(rng.NormFloat64()*sigma)
	}
	if rng.Float64() < p {
		return 1
	}
	return 0
}
