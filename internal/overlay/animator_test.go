package overlay_test

import (
	"testing"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/overlay"
	"github.com/okian/overlay/pkg/clock"
	"github.com/smartystreets/goconvey/convey"
)

func TestAnimator(t *testing.T) {
	convey.Convey("Given an animator showing 50000", t, func() {
		fake := clock.NewFake(time.Unix(0, 0))
		a := overlay.NewAnimator(fake, 500*time.Millisecond)
		a.Set(50000)
		v, animating := a.Value()
		convey.So(v, convey.ShouldEqual, 50000.0)
		convey.So(animating, convey.ShouldBeFalse)

		convey.Convey("When the value drops", func() {
			a.Set(35000)

			convey.Convey("Then the old value animates for 500ms before snapping", func() {
				v, animating := a.Value()
				convey.So(v, convey.ShouldEqual, 50000.0)
				convey.So(animating, convey.ShouldBeTrue)

				fake.Advance(499 * time.Millisecond)
				_, animating = a.Value()
				convey.So(animating, convey.ShouldBeTrue)

				fake.Advance(time.Millisecond)
				v, animating = a.Value()
				convey.So(v, convey.ShouldEqual, 35000.0)
				convey.So(animating, convey.ShouldBeFalse)
			})

			convey.Convey("Then another change restarts the window", func() {
				fake.Advance(300 * time.Millisecond)
				a.Set(30000)
				fake.Advance(300 * time.Millisecond)
				_, animating := a.Value()
				convey.So(animating, convey.ShouldBeTrue)
				fake.Advance(200 * time.Millisecond)
				v, _ := a.Value()
				convey.So(v, convey.ShouldEqual, 30000.0)
			})

			convey.Convey("Then returning to the displayed value cancels the window", func() {
				a.Set(50000)
				v, animating := a.Value()
				convey.So(v, convey.ShouldEqual, 50000.0)
				convey.So(animating, convey.ShouldBeFalse)
				convey.So(fake.Pending(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the same value repeats", func() {
			a.Set(50000)

			convey.Convey("Then nothing animates", func() {
				_, animating := a.Value()
				convey.So(animating, convey.ShouldBeFalse)
				convey.So(fake.Pending(), convey.ShouldEqual, 0)
			})
		})
	})
}

func messages(texts ...string) []model.Message {
	out := make([]model.Message, len(texts))
	for i, t := range texts {
		out[i] = model.Message{ID: int64(i + 1), Text: t}
	}
	return out
}

func TestRotator(t *testing.T) {
	convey.Convey("Given three messages shown for 2 seconds each", t, func() {
		fake := clock.NewFake(time.Unix(0, 0))
		r := overlay.NewRotator(fake)
		r.Update(messages("a", "b", "c"), 2)

		convey.Convey("Then the index advances and wraps", func() {
			convey.So(r.Current(), convey.ShouldEqual, "a")
			fake.Advance(2 * time.Second)
			convey.So(r.Current(), convey.ShouldEqual, "b")
			fake.Advance(2 * time.Second)
			convey.So(r.Current(), convey.ShouldEqual, "c")
			fake.Advance(2 * time.Second)
			convey.So(r.Current(), convey.ShouldEqual, "a")
		})

		convey.Convey("Then an identical update keeps the position", func() {
			fake.Advance(2 * time.Second)
			r.Update(messages("a", "b", "c"), 2)
			convey.So(r.Index(), convey.ShouldEqual, 1)
		})

		convey.Convey("Then a new list starts over", func() {
			fake.Advance(2 * time.Second)
			r.Update(messages("a", "b", "d"), 2)
			convey.So(r.Index(), convey.ShouldEqual, 0)
			convey.So(fake.Pending(), convey.ShouldEqual, 1)
		})

		convey.Convey("Then a single message is pinned", func() {
			fake.Advance(2 * time.Second)
			r.Update(messages("only"), 2)
			fake.Advance(10 * time.Second)
			convey.So(r.Current(), convey.ShouldEqual, "only")
			convey.So(fake.Pending(), convey.ShouldEqual, 0)
		})

		convey.Convey("Then a duration under one second pins the first message", func() {
			fake.Advance(2 * time.Second)
			r.Update(messages("a", "b", "c"), 0.5)
			convey.So(r.Index(), convey.ShouldEqual, 0)
			fake.Advance(10 * time.Second)
			convey.So(r.Index(), convey.ShouldEqual, 0)
		})

		convey.Convey("Then an empty list shows nothing", func() {
			r.Update(nil, 2)
			convey.So(r.Current(), convey.ShouldBeEmpty)
		})

		convey.Convey("Then Stop cancels rotation", func() {
			r.Stop()
			convey.So(fake.Pending(), convey.ShouldEqual, 0)
		})
	})
}
