package types_test

import (
	"testing"

	"github.com/okian/podium/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreMap(t *testing.T) {
	Convey("Given an empty score map", t, func() {
		m := make(types.ScoreMap)

		Convey("When setting scores across divisions", func() {
			m.Set(1, "s:a", 10)
			m.Set(1, "s:b", 20)
			m.Set(2, "t:x", 5)

			Convey("Then scores are retrievable per division", func() {
				score, ok := m.Get(1, "s:a")
				So(ok, ShouldBeTrue)
				So(score, ShouldEqual, 10)

				_, ok = m.Get(2, "s:a")
				So(ok, ShouldBeFalse)
			})

			Convey("And participants counts all divisions", func() {
				So(m.Participants(), ShouldEqual, 3)
			})

			Convey("And scaling returns a scaled copy", func() {
				scaled := m.Scale(0.5)
				score, _ := scaled.Get(1, "s:b")
				So(score, ShouldEqual, 10)

				// Original stays untouched.
				score, _ = m.Get(1, "s:b")
				So(score, ShouldEqual, 20)
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a division bucket with a tie", t, func() {
		bucket := map[string]float64{
			"a": 10,
			"b": 20,
			"c": 10,
		}

		Convey("When ranking without a name resolver", func() {
			standings := types.Rank(bucket, nil)

			Convey("Then scores order descending and ties share a rank", func() {
				So(standings, ShouldHaveLength, 3)
				So(standings[0].ID, ShouldEqual, "b")
				So(standings[0].Rank, ShouldEqual, 1)
				So(standings[1].Rank, ShouldEqual, 2)
				So(standings[2].Rank, ShouldEqual, 2)
				So(standings[1].Name, ShouldEqual, standings[1].ID)
			})
		})

		Convey("When ranking with a name resolver", func() {
			standings := types.Rank(bucket, func(id string) string { return "name-" + id })

			Convey("Then names are resolved", func() {
				So(standings[0].Name, ShouldEqual, "name-b")
			})
		})
	})

	Convey("Given an empty bucket", t, func() {
		So(types.Rank(nil, nil), ShouldBeEmpty)
	})
}
