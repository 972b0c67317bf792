package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/podium/internal/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCache(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		ctx := context.Background()
		c := cache.New()

		Convey("When computing a value for the first time", func() {
			calls := 0
			fn := func(ctx context.Context) (int, error) {
				calls++
				return 42, nil
			}
			v, err := cache.GetOrCompute(ctx, c, "answer", cache.Options{}, fn)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 42)
			So(calls, ShouldEqual, 1)

			Convey("Then subsequent reads return the cached value without computing", func() {
				v, err := cache.GetOrCompute(ctx, c, "answer", cache.Options{}, fn)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 42)
				So(calls, ShouldEqual, 1)
			})

			Convey("And a forced refresh recomputes", func() {
				fn2 := func(ctx context.Context) (int, error) { return 7, nil }
				v, err := cache.GetOrCompute(ctx, c, "answer", cache.Options{Refresh: true}, fn2)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 7)

				v, err = cache.GetOrCompute(ctx, c, "answer", cache.Options{}, fn)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 7)
			})

			Convey("And a fresh entry inside the window wins over refresh", func() {
				fn2 := func(ctx context.Context) (int, error) { return 7, nil }
				v, err := cache.GetOrCompute(ctx, c, "answer",
					cache.Options{Refresh: true, MaxAge: time.Hour}, fn2)
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 42)
			})
		})

		Convey("When the computation fails", func() {
			boom := errors.New("boom")
			_, err := cache.GetOrCompute(ctx, c, "bad", cache.Options{}, func(ctx context.Context) (int, error) {
				return 0, boom
			})
			So(err, ShouldWrap, boom)

			Convey("Then nothing is stored and the next call retries", func() {
				_, ok := c.Get("bad")
				So(ok, ShouldBeFalse)

				v, err := cache.GetOrCompute(ctx, c, "bad", cache.Options{}, func(ctx context.Context) (int, error) {
					return 1, nil
				})
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When stashing values directly", func() {
			c.Set("stash", []string{"a", "b"})

			v, ok := cache.Lookup[[]string](c, "stash")
			So(ok, ShouldBeTrue)
			So(v, ShouldResemble, []string{"a", "b"})

			_, ok = cache.Lookup[int](c, "stash")
			So(ok, ShouldBeFalse)
		})

		Convey("When many goroutines miss at once", func() {
			var calls int
			var mu sync.Mutex
			fn := func(ctx context.Context) (int, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				return 1, nil
			}

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = cache.GetOrCompute(ctx, c, "contended", cache.Options{}, fn)
				}()
			}
			wg.Wait()

			Convey("Then the per-name lock collapses them into one compute", func() {
				mu.Lock()
				defer mu.Unlock()
				So(calls, ShouldEqual, 1)
			})
		})
	})
}
