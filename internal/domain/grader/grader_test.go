package grader_test

import (
	"context"
	"testing"

	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/grader"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func engineRoster() *model.Roster {
	competition := model.Competition{
		ID:     "c1",
		Ref:    "demo",
		Name:   "Demo",
		Active: true,
		Divisions: []types.Division{1, 2},
		DivisionNames: map[types.Division]string{1: "Pascal", 2: "Ramanujan"},
		Subjects: []types.Subject{"algebra", "geometry"},
		Rounds: []model.Round{
			{
				ID: "r1", Ref: "subject1", Name: "Subject 1", Grouping: model.GroupingIndividual,
				Questions: []model.Question{
					{ID: "q1", RoundRef: "subject1", Number: 1, Weight: 1},
					{ID: "q2", RoundRef: "subject1", Number: 2, Weight: 3},
				},
			},
			{
				ID: "r2", Ref: "team", Name: "Team", Grouping: model.GroupingTeam,
				Questions: []model.Question{
					{ID: "q3", RoundRef: "team", Number: 1, Weight: 2},
				},
			},
			{
				ID: "r3", Ref: "mystery", Name: "Mystery", Grouping: model.Grouping(99),
				Questions: []model.Question{
					{ID: "q4", RoundRef: "mystery", Number: 1, Weight: 1},
				},
			},
		},
	}
	teams := []model.Team{
		{ID: "t1", Name: "Alpha", Division: 1},
		{ID: "t2", Name: "Beta", Division: 2},
	}
	students := []model.Student{
		{ID: "s1", Name: "Ada", TeamID: "t1", Subject1: "algebra", Subject2: "geometry", Attending: true},
		{ID: "s2", Name: "Emmy", TeamID: "t1", Subject1: "geometry", Subject2: "algebra", Attending: true},
		{ID: "s3", Name: "Ghost", TeamID: "t2", Subject1: "algebra", Subject2: "geometry", Attending: false},
	}
	roster, err := model.NewRoster(competition, teams, students)
	So(err, ShouldBeNil)
	return roster
}

func TestEngineDefaults(t *testing.T) {
	Convey("Given an engine with no registrations", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		roster := engineRoster()
		engine := grader.NewEngine(roster, store)

		one := 1.0
		So(store.SetValue(ctx, "q1", model.StudentRef("s1"), &one), ShouldBeNil)
		So(store.SetValue(ctx, "q2", model.StudentRef("s1"), &one), ShouldBeNil)

		Convey("When grading the individual round", func() {
			round, _ := roster.Round("subject1")
			scores, err := engine.GradeRound(ctx, *round)
			So(err, ShouldBeNil)

			Convey("Then answered questions score weight times value", func() {
				s, ok := scores.Get(1, model.StudentRef("s1").Key())
				So(ok, ShouldBeTrue)
				So(s, ShouldEqual, 4) // 1*1 + 3*1
			})

			Convey("And attending students without answers score zero", func() {
				s, ok := scores.Get(1, model.StudentRef("s2").Key())
				So(ok, ShouldBeTrue)
				So(s, ShouldEqual, 0)
			})

			Convey("And non-attending students are excluded", func() {
				_, ok := scores.Get(2, model.StudentRef("s3").Key())
				So(ok, ShouldBeFalse)
			})

			Convey("And grading never creates answer rows", func() {
				_, ok, err := store.Answer(ctx, "q1", model.StudentRef("s2"))
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When grading the team round", func() {
			half := 0.5
			So(store.SetValue(ctx, "q3", model.TeamRef("t2"), &half), ShouldBeNil)

			round, _ := roster.Round("team")
			scores, err := engine.GradeRound(ctx, *round)
			So(err, ShouldBeNil)

			Convey("Then every team appears in its division", func() {
				s, ok := scores.Get(1, model.TeamRef("t1").Key())
				So(ok, ShouldBeTrue)
				So(s, ShouldEqual, 0)

				s, ok = scores.Get(2, model.TeamRef("t2").Key())
				So(ok, ShouldBeTrue)
				So(s, ShouldEqual, 1) // 2 * 0.5
			})
		})

		Convey("When grading a round with an unknown grouping", func() {
			round, _ := roster.Round("mystery")
			scores, err := engine.GradeRound(ctx, *round)

			Convey("Then it reports not applicable without error", func() {
				So(err, ShouldBeNil)
				So(scores, ShouldBeNil)
			})
		})

		Convey("When grading the whole competition", func() {
			results, err := engine.GradeCompetition(ctx)
			So(err, ShouldBeNil)

			Convey("Then results key by round ref and omit inapplicable rounds", func() {
				So(results, ShouldContainKey, "subject1")
				So(results, ShouldContainKey, "team")
				So(results, ShouldNotContainKey, "mystery")
			})
		})
	})
}

func TestEngineRegistration(t *testing.T) {
	Convey("Given an engine with custom graders", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		roster := engineRoster()
		engine := grader.NewEngine(roster, store)

		one := 1.0
		So(store.SetValue(ctx, "q1", model.StudentRef("s1"), &one), ShouldBeNil)

		Convey("When a question grader is registered by round", func() {
			engine.RegisterQuestionGrader(grader.InRound("subject1"),
				func(q model.Question, a model.Answer) float64 { return 10 * a.ValueOrZero() })

			round, _ := roster.Round("subject1")
			scores, err := engine.GradeRound(ctx, *round)
			So(err, ShouldBeNil)

			Convey("Then matched questions use it and others keep the default", func() {
				s, _ := scores.Get(1, model.StudentRef("s1").Key())
				So(s, ShouldEqual, 10)
			})
		})

		Convey("When registrations overlap the last one wins", func() {
			engine.RegisterQuestionGrader(grader.InRound("subject1"),
				func(q model.Question, a model.Answer) float64 { return 1 })
			engine.RegisterQuestionGrader(grader.OfType(model.TypeCorrect),
				func(q model.Question, a model.Answer) float64 { return 2 })

			q, _ := roster.Question("q1")
			So(engine.QuestionGraderFor(*q)(*q, model.Answer{}), ShouldEqual, 2)
		})

		Convey("When a round grader is registered", func() {
			engine.RegisterRoundGrader(grader.RoundRef("team"),
				func(ctx context.Context, r model.Round) (types.ScoreMap, error) {
					m := make(types.ScoreMap)
					m.Set(1, "custom", 99)
					return m, nil
				})

			round, _ := roster.Round("team")
			scores, err := engine.GradeRound(ctx, *round)
			So(err, ShouldBeNil)

			s, ok := scores.Get(1, "custom")
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, 99)
		})

		Convey("When a predicate matches nothing", func() {
			engine.RegisterQuestionGrader(grader.InRound("nonexistent"),
				func(q model.Question, a model.Answer) float64 { return -1 })

			round, _ := roster.Round("subject1")
			_, err := engine.GradeRound(ctx, *round)
			So(err, ShouldBeNil)
		})
	})
}

func TestEnsureRoundAnswers(t *testing.T) {
	Convey("Given an engine over an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		roster := engineRoster()
		engine := grader.NewEngine(roster, store)

		Convey("When preparing the individual round", func() {
			round, _ := roster.Round("subject1")
			So(engine.EnsureRoundAnswers(ctx, *round), ShouldBeNil)

			Convey("Then every attending student has a blank row per question", func() {
				for _, studentID := range []string{"s1", "s2"} {
					for _, questionID := range []string{"q1", "q2"} {
						a, ok, err := store.Answer(ctx, questionID, model.StudentRef(studentID))
						So(err, ShouldBeNil)
						So(ok, ShouldBeTrue)
						So(a.HasValue(), ShouldBeFalse)
					}
				}
			})

			Convey("And non-attending students get none", func() {
				_, ok, err := store.Answer(ctx, "q1", model.StudentRef("s3"))
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And preparing again leaves graded values alone", func() {
				one := 1.0
				So(store.SetValue(ctx, "q1", model.StudentRef("s1"), &one), ShouldBeNil)
				So(engine.EnsureRoundAnswers(ctx, *round), ShouldBeNil)

				a, _, err := store.Answer(ctx, "q1", model.StudentRef("s1"))
				So(err, ShouldBeNil)
				So(a.ValueOrZero(), ShouldEqual, 1)
			})
		})

		Convey("When preparing a round with an unknown grouping", func() {
			round, _ := roster.Round("mystery")
			So(engine.EnsureRoundAnswers(ctx, *round), ShouldBeNil)

			answers, err := store.AnswersForQuestion(ctx, "q4")
			So(err, ShouldBeNil)
			So(answers, ShouldBeEmpty)
		})
	})
}
