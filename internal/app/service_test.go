package service_test

import (
	"context"
	"testing"

	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/estimation"
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

func serviceRoster() *model.Roster {
	ref := 1000.0
	competition := model.Competition{
		ID:     "c1",
		Ref:    "demo",
		Name:   "Demo",
		Active: true,
		Divisions: []types.Division{1},
		DivisionNames: map[types.Division]string{1: "Pascal"},
		Subjects: []types.Subject{"algebra", "geometry"},
		Rounds: []model.Round{
			{
				ID: "r1", Ref: "subject1", Name: "Subject 1", Grouping: model.GroupingIndividual,
				Questions: []model.Question{
					{ID: "a1", RoundRef: "subject1", Number: 1, Weight: 1},
				},
			},
			{
				ID: "r2", Ref: "subject2", Name: "Subject 2", Grouping: model.GroupingIndividual,
				Questions: []model.Question{
					{ID: "g1", RoundRef: "subject2", Number: 1, Weight: 1},
				},
			},
			{
				ID: "r3", Ref: "team", Name: "Team", Grouping: model.GroupingTeam,
				Questions: []model.Question{
					{ID: "t1q", RoundRef: "team", Number: 1, Weight: 2},
				},
			},
			{
				ID: "r4", Ref: "guts", Name: "Guts", Grouping: model.GroupingTeam,
				Questions: []model.Question{
					{ID: "u1", RoundRef: "guts", Number: 1, Type: model.TypeEstimation, Weight: 4,
						Answer: &ref, Estimation: &model.EstimationSpec{Kind: estimation.KindLogRatio, Cap: 12}},
				},
			},
		},
	}
	teams := []model.Team{
		{ID: "alpha", Name: "Alpha", Division: 1},
		{ID: "beta", Name: "Beta", Division: 1},
	}
	students := []model.Student{
		{ID: "s1", Name: "Ada", TeamID: "alpha", Subject1: "algebra", Subject2: "geometry", Attending: true},
		{ID: "s2", Name: "Emmy", TeamID: "alpha", Subject1: "algebra", Subject2: "geometry", Attending: true},
		{ID: "s3", Name: "Sofia", TeamID: "beta", Subject1: "algebra", Subject2: "geometry", Attending: true},
		{ID: "s4", Name: "Maryam", TeamID: "beta", Subject1: "algebra", Subject2: "geometry", Attending: true},
	}
	roster, err := model.NewRoster(competition, teams, students)
	So(err, ShouldBeNil)
	return roster
}

func fillServiceAnswers(ctx context.Context, svc *service.Service) {
	submit := func(questionID string, ref model.ParticipantRef, v float64) {
		So(svc.SubmitScore(ctx, questionID, ref, &v), ShouldBeNil)
	}
	submit("a1", model.StudentRef("s1"), 1)
	submit("g1", model.StudentRef("s1"), 1)
	submit("a1", model.StudentRef("s2"), 1)
	submit("g1", model.StudentRef("s2"), 0)
	submit("a1", model.StudentRef("s3"), 0)
	submit("g1", model.StudentRef("s3"), 1)
	submit("a1", model.StudentRef("s4"), 0)
	submit("g1", model.StudentRef("s4"), 0)
	submit("t1q", model.TeamRef("alpha"), 1)
	submit("t1q", model.TeamRef("beta"), 0.5)
	submit("u1", model.TeamRef("alpha"), 1000)
	submit("u1", model.TeamRef("beta"), 100000)
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service over an in-memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		svc := service.New(store, service.WithRoster(serviceRoster()))

		Convey("When used before starting", func() {
			_, err := svc.TeamScoreboard(ctx, false)
			So(err, ShouldWrap, service.ErrNotStarted)

			err = svc.SubmitScore(ctx, "a1", model.StudentRef("s1"), nil)
			So(err, ShouldWrap, service.ErrNotStarted)
		})

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("Then stats describe the roster", func() {
				stats, err := svc.GetStats(ctx)
				So(err, ShouldBeNil)
				So(stats["competition"], ShouldEqual, "demo")
				So(stats["season"], ShouldEqual, "classic")
				So(stats["teams"], ShouldEqual, 2)
				So(stats["students"], ShouldEqual, 4)
			})

			Convey("And stopping makes it unavailable again", func() {
				svc.Stop()
				_, err := svc.GetStats(ctx)
				So(err, ShouldWrap, service.ErrNotStarted)
			})
		})

		Convey("When the store has no roster and none is supplied", func() {
			bare := service.New(repository.NewMemStore())
			err := bare.Start(ctx)
			So(err, ShouldWrap, repository.ErrNoActiveRoster)
		})

		Convey("When the configured season does not exist", func() {
			odd := service.New(store,
				service.WithRoster(serviceRoster()),
				service.WithSeason("disco"))
			So(odd.Start(ctx), ShouldNotBeNil)
		})
	})
}

func TestServiceScoreboards(t *testing.T) {
	Convey("Given a started service with graded answers", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		svc := service.New(store, service.WithRoster(serviceRoster()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		fillServiceAnswers(ctx, svc)

		Convey("When reading the team scoreboard", func() {
			board, err := svc.TeamScoreboard(ctx, false)
			So(err, ShouldBeNil)

			Convey("Then divisions appear by display name with ranked rows", func() {
				standings := board["Pascal"]
				So(standings, ShouldHaveLength, 2)
				So(standings[0].Name, ShouldEqual, "Alpha")
				So(standings[0].Rank, ShouldEqual, 1)
				So(standings[1].Name, ShouldEqual, "Beta")
				So(standings[0].Score, ShouldBeGreaterThan, standings[1].Score)
			})
		})

		Convey("When reading the individual scoreboard", func() {
			board, err := svc.IndividualScoreboard(ctx, false)
			So(err, ShouldBeNil)

			standings := board["Pascal"]
			So(standings, ShouldHaveLength, 4)
			So(standings[0].Name, ShouldEqual, "Ada")
		})

		Convey("When reading subject scoreboards", func() {
			boards, err := svc.SubjectScoreboards(ctx, false)
			So(err, ShouldBeNil)

			So(boards["Pascal"], ShouldContainKey, "algebra")
			So(boards["Pascal"], ShouldContainKey, "geometry")
			So(boards["Pascal"]["algebra"], ShouldNotBeEmpty)
		})

		Convey("When reading the live guts scoreboard", func() {
			board, err := svc.LiveGutsScoreboard(ctx)
			So(err, ShouldBeNil)

			standings := board["Pascal"]
			So(standings, ShouldHaveLength, 2)
			So(standings[0].Name, ShouldEqual, "Alpha")
		})

		Convey("When recalculating after a late correction", func() {
			before, err := svc.TeamScoreboard(ctx, false)
			So(err, ShouldBeNil)

			// Beta's team answer is corrected upward; cached boards hold
			// until a forced recomputation.
			v := 1.0
			So(svc.SubmitScore(ctx, "t1q", model.TeamRef("beta"), &v), ShouldBeNil)

			unchanged, err := svc.TeamScoreboard(ctx, false)
			So(err, ShouldBeNil)
			So(unchanged["Pascal"][1].Score, ShouldEqual, before["Pascal"][1].Score)

			So(svc.Recalculate(ctx), ShouldBeNil)

			after, err := svc.TeamScoreboard(ctx, false)
			So(err, ShouldBeNil)
			So(after["Pascal"][1].Score, ShouldBeGreaterThan, before["Pascal"][1].Score)
		})
	})
}

func TestServiceWrites(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		svc := service.New(store, service.WithRoster(serviceRoster()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When submitting to an unknown question", func() {
			v := 1.0
			err := svc.SubmitScore(ctx, "nope", model.StudentRef("s1"), &v)
			So(err, ShouldWrap, service.ErrUnknownQuestion)
		})

		Convey("When submitting for an unknown participant", func() {
			v := 1.0
			err := svc.SubmitScore(ctx, "a1", model.StudentRef("ghost"), &v)
			So(err, ShouldWrap, service.ErrInvalidParticipant)
		})

		Convey("When submitting with a malformed reference", func() {
			err := svc.SubmitScore(ctx, "a1", model.ParticipantRef{}, nil)
			So(err, ShouldWrap, service.ErrInvalidParticipant)
		})

		Convey("When preparing a round", func() {
			So(svc.PrepareRound(ctx, "subject1"), ShouldBeNil)

			a, ok, err := store.Answer(ctx, "a1", model.StudentRef("s1"))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(a.HasValue(), ShouldBeFalse)
		})

		Convey("When preparing an unknown round", func() {
			So(svc.PrepareRound(ctx, "nope"), ShouldWrap, service.ErrUnknownRound)
		})
	})
}
