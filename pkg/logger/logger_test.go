package logger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Then the global accessor returns a usable logger", func() {
			log := logger.Get()
			So(log, ShouldNotBeNil)

			// Smoke the levels; records go to stdout.
			ctx := context.Background()
			log.Debug(ctx, "debug message")
			log.Info(ctx, "info message", logger.String("k", "v"))
			log.Warn(ctx, "warn message", logger.Int("n", 1))
			log.Error(ctx, "error message", logger.Error(errors.New("boom")))
		})

		Convey("Then named children chain", func() {
			log := logger.Named("parent").Named("child")
			So(log, ShouldNotBeNil)
			log.Info(context.Background(), "nested")
		})

		Convey("Then level names parse", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("INFO"), ShouldBeNil)
			So(logger.SetLevelString("warning"), ShouldBeNil)
			So(logger.SetLevelString("error"), ShouldBeNil)
			So(logger.SetLevelString(""), ShouldBeNil)
			So(logger.SetLevelString("shout"), ShouldNotBeNil)
		})

		Convey("Then sync is a no-op", func() {
			So(logger.Sync(), ShouldBeNil)
		})
	})
}

func TestFields(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		So(logger.String("a", "b").Key, ShouldEqual, "a")
		So(logger.Int("n", 3).Value, ShouldEqual, 3)
		So(logger.Float64("f", 1.5).Value, ShouldEqual, 1.5)
		So(logger.Bool("ok", true).Value, ShouldEqual, true)
		So(logger.Duration("d", time.Second).Value, ShouldEqual, time.Second)
		So(logger.Any("x", []int{1}).Key, ShouldEqual, "x")

		err := errors.New("boom")
		f := logger.Error(err)
		So(f.Key, ShouldEqual, "error")
		So(f.Value, ShouldEqual, err)
	})
}
