package normalize_test

import (
	"math"
	"testing"

	"github.com/okian/podium/internal/domain/normalize"
	"github.com/okian/podium/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWeightFuncs(t *testing.T) {
	Convey("Given the smoothed log transform", t, func() {
		Convey("When everyone answers correctly", func() {
			So(normalize.SmoothedLog(10, 10), ShouldAlmostEqual, 2)
		})

		Convey("When no one answers correctly", func() {
			w := normalize.SmoothedLog(0, 10)
			So(w, ShouldAlmostEqual, 2+math.Log(6))
			So(math.IsInf(w, 0), ShouldBeFalse)
		})

		Convey("Then harder questions weigh more", func() {
			So(normalize.SmoothedLog(2, 10), ShouldBeGreaterThan, normalize.SmoothedLog(8, 10))
		})
	})

	Convey("Given the lambda-scaled log transform", t, func() {
		fn := normalize.LambdaLog(0.5)

		Convey("When the tally is regular", func() {
			So(fn(5, 10), ShouldAlmostEqual, 0.5*math.Log(2))
		})

		Convey("When no one answered correctly it falls back to the smoothed form", func() {
			So(fn(0, 10), ShouldAlmostEqual, normalize.SmoothedLog(0, 10))
		})
	})
}

func TestCorrectionTable(t *testing.T) {
	Convey("Given tallies for one division and subject", t, func() {
		tallies := make(normalize.TallySet)
		// Question 1: 3 of 4 correct. Question 2: 1 of 4 correct.
		for _, v := range []float64{1, 1, 1, 0} {
			tallies.Add(1, "algebra", 1, v)
		}
		for _, v := range []float64{1, 0, 0, 0} {
			tallies.Add(1, "algebra", 2, v)
		}

		table := normalize.BuildCorrectionTable(tallies, normalize.SmoothedLog)

		Convey("Then weights reflect difficulty", func() {
			w1 := table.Weight(1, "algebra", 1)
			w2 := table.Weight(1, "algebra", 2)
			So(w1, ShouldAlmostEqual, normalize.SmoothedLog(3, 4))
			So(w2, ShouldAlmostEqual, normalize.SmoothedLog(1, 4))
			So(w2, ShouldBeGreaterThan, w1)
		})

		Convey("Then the maximum is the sum of weights", func() {
			So(table.Max(1, "algebra"), ShouldAlmostEqual,
				table.Weight(1, "algebra", 1)+table.Weight(1, "algebra", 2))
		})

		Convey("Then untallied questions default to weight 1 and max 0", func() {
			So(table.Weight(1, "geometry", 1), ShouldEqual, 1)
			So(table.Max(2, "algebra"), ShouldEqual, 0)
		})
	})
}

func TestPowerMeanExponent(t *testing.T) {
	Convey("Given a spread of normalized scores", t, func() {
		scores := []float64{0.2, 0.35, 0.5, 0.6, 0.75, 0.9}

		Convey("When calibrating to the default target", func() {
			p, err := normalize.PowerMeanExponent(scores, normalize.DefaultTargetQuantile)
			So(err, ShouldBeNil)
			So(p, ShouldBeGreaterThan, 0)

			Convey("Then the calibrated mean hits the target", func() {
				sum := 0.0
				for _, s := range scores {
					sum += math.Pow(s, p)
				}
				So(sum/float64(len(scores)), ShouldAlmostEqual, normalize.DefaultTargetQuantile, 1e-8)
			})

			Convey("And the fit is deterministic", func() {
				again, err := normalize.PowerMeanExponent(scores, normalize.DefaultTargetQuantile)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, p)
			})
		})

		Convey("When the population is weak the exponent shrinks below one", func() {
			weak := []float64{0.05, 0.1, 0.15, 0.2}
			p, err := normalize.PowerMeanExponent(weak, normalize.DefaultTargetQuantile)
			So(err, ShouldBeNil)
			So(p, ShouldBeLessThan, 1)
		})

		Convey("When the population is strong the exponent grows above one", func() {
			strong := []float64{0.7, 0.8, 0.85, 0.9}
			p, err := normalize.PowerMeanExponent(strong, normalize.DefaultTargetQuantile)
			So(err, ShouldBeNil)
			So(p, ShouldBeGreaterThan, 1)
		})

		Convey("When every score is zero or one the exponent stays neutral", func() {
			p, err := normalize.PowerMeanExponent([]float64{1, 1, 0, 0}, normalize.DefaultTargetQuantile)
			So(err, ShouldBeNil)
			So(p, ShouldEqual, 1)
		})

		Convey("When there are too few samples the exponent stays neutral", func() {
			p, err := normalize.PowerMeanExponent([]float64{0.4, 0.9}, normalize.DefaultTargetQuantile)
			So(err, ShouldBeNil)
			So(p, ShouldEqual, 1)
		})

		Convey("When the population is empty", func() {
			_, err := normalize.PowerMeanExponent(nil, normalize.DefaultTargetQuantile)
			So(err, ShouldWrap, normalize.ErrNoData)
		})

		Convey("When the target is out of range", func() {
			_, err := normalize.PowerMeanExponent(scores, 1.5)
			So(err, ShouldWrap, normalize.ErrNoConvergence)
		})
	})
}

func TestZScores(t *testing.T) {
	Convey("Given a simple bucket", t, func() {
		scores := map[string]float64{"a": 10, "b": 20, "c": 30}

		Convey("When standardizing", func() {
			z := normalize.ZScores(scores)

			Convey("Then values standardize against the sample deviation", func() {
				So(z["a"], ShouldAlmostEqual, -1)
				So(z["b"], ShouldAlmostEqual, 0)
				So(z["c"], ShouldAlmostEqual, 1)
			})
		})

		Convey("When every score is equal", func() {
			z := normalize.ZScores(map[string]float64{"a": 5, "b": 5})
			So(z["a"], ShouldEqual, 0)
			So(z["b"], ShouldEqual, 0)
		})

		Convey("When the bucket has a single entry", func() {
			z := normalize.ZScores(map[string]float64{"only": 42})
			So(z["only"], ShouldEqual, 0)
		})
	})

	Convey("Given a score map with two divisions", t, func() {
		m := types.ScoreMap{
			1: {"a": 0, "b": 10},
			2: {"c": 100, "d": 200},
		}
		z := normalize.ZScoreMap(m)

		Convey("Then divisions standardize independently", func() {
			So(z[1]["b"], ShouldAlmostEqual, z[2]["d"])
			So(z[1]["a"], ShouldAlmostEqual, z[2]["c"])
		})
	})
}
