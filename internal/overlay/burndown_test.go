package overlay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/overlay/internal/adapters/http/client"
	repository "github.com/okian/overlay/internal/adapters/repository"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/overlay"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type publishRecorder struct {
	mu   sync.Mutex
	sent []model.StreamRecord
	err  error
}

func (p *publishRecorder) Fetch(context.Context) (model.StreamRecord, error) {
	return model.StreamRecord{}, errors.New("not used")
}

func (p *publishRecorder) Publish(_ context.Context, rec model.StreamRecord) (model.StreamRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, rec.Clone())
	return rec, p.err
}

func (p *publishRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func burndownRecord(target float64, scores ...float64) model.StreamRecord {
	rec := model.DefaultRecord()
	rec.Burndown.TargetValue = target
	for i, s := range scores {
		rec.Burndown.Entries = append(rec.Burndown.Entries, model.BurndownEntry{Score: s, Timestamp: int64(i + 1)})
	}
	return rec
}

func apply(o *overlay.BurndownOverlay, rec model.StreamRecord, now time.Time) bool {
	follow := o.Apply(rec, now)
	if follow == nil {
		return false
	}
	follow(context.Background())
	return true
}

func TestBurndownOverlay(t *testing.T) {
	Convey("Given a burn-down overlay", t, func() {
		start := time.UnixMilli(1_700_000_000_000)
		fake := clock.NewFake(start)
		remote := &publishRecorder{}
		o := overlay.NewBurndownOverlay(remote, overlay.WithClock(fake), overlay.WithLogger(logger.Discard()))

		Convey("When no record has arrived", func() {
			Convey("Then the view is not ready", func() {
				So(o.View().Ready, ShouldBeFalse)
			})
		})

		Convey("When the record has no burndown", func() {
			rec := model.DefaultRecord()
			rec.Burndown = nil
			So(apply(o, rec, fake.Now()), ShouldBeFalse)

			Convey("Then the view is still loading", func() {
				So(o.View().Ready, ShouldBeFalse)
			})
		})

		Convey("When 15000 of 50000 is earned", func() {
			So(apply(o, burndownRecord(50000, 10000, 5000), fake.Now()), ShouldBeFalse)
			v := o.View()

			Convey("Then the view shows 35000 remaining at 30 percent", func() {
				So(v.Ready, ShouldBeTrue)
				So(v.Summary.Remaining, ShouldEqual, 35000.0)
				So(v.Summary.Percentage, ShouldEqual, 30)
				So(v.Displayed, ShouldEqual, 35000.0)
				So(v.Animating, ShouldBeFalse)
				So(v.Points, ShouldResemble, []float64{50000, 40000, 35000})
				So(remote.count(), ShouldEqual, 0)
			})

			Convey("And a new entry animates the remaining value", func() {
				apply(o, burndownRecord(50000, 10000, 5000, 5000), fake.Now())
				v := o.View()
				So(v.Displayed, ShouldEqual, 35000.0)
				So(v.Animating, ShouldBeTrue)
				fake.Advance(500 * time.Millisecond)
				So(o.View().Displayed, ShouldEqual, 30000.0)
			})
		})

		Convey("When the goal is reached with no earlier event", func() {
			rec := burndownRecord(50000, 30000, 30000)
			sent := apply(o, rec, fake.Now())

			Convey("Then one fireworks event is posted with the fetched record", func() {
				So(sent, ShouldBeTrue)
				So(remote.count(), ShouldEqual, 1)
				posted := remote.sent[0]
				So(posted.LastEvent, ShouldResemble, &model.Event{Name: model.EffectFireworks, Timestamp: start.UnixMilli()})
				So(posted.Burndown, ShouldResemble, rec.Burndown)
			})

			Convey("Then polls inside the window do not post again", func() {
				fake.Advance(2 * time.Second)
				So(apply(o, rec, fake.Now()), ShouldBeFalse)
				fake.Advance(17 * time.Second)
				So(apply(o, rec, fake.Now()), ShouldBeFalse)
				So(remote.count(), ShouldEqual, 1)
			})

			Convey("Then the trigger repeats once the window has passed", func() {
				fake.Advance(20 * time.Second)
				So(apply(o, rec, fake.Now()), ShouldBeTrue)
				So(remote.count(), ShouldEqual, 2)
			})
		})

		Convey("When the goal is reached and fireworks fired 5s ago", func() {
			rec := burndownRecord(50000, 50000)
			rec.LastEvent = &model.Event{Name: model.EffectFireworks, Timestamp: start.Add(-5 * time.Second).UnixMilli()}
			sent := apply(o, rec, fake.Now())

			Convey("Then nothing is posted and fireworks are active", func() {
				So(sent, ShouldBeFalse)
				So(o.View().FireworksActive, ShouldBeTrue)
				fake.Advance(15 * time.Second)
				So(o.View().FireworksActive, ShouldBeFalse)
			})
		})

		Convey("When the goal is reached and the last event was a heart", func() {
			rec := burndownRecord(100, 100)
			rec.LastEvent = &model.Event{Name: model.EffectLove, Timestamp: start.UnixMilli()}

			Convey("Then fireworks are posted", func() {
				So(apply(o, rec, fake.Now()), ShouldBeTrue)
			})
		})

		Convey("When the fireworks post fails", func() {
			remote.err = errors.New("store down")
			rec := burndownRecord(10, 10)
			So(apply(o, rec, fake.Now()), ShouldBeTrue)

			Convey("Then the next poll tries again", func() {
				fake.Advance(2 * time.Second)
				So(apply(o, rec, fake.Now()), ShouldBeTrue)
				So(remote.count(), ShouldEqual, 2)
			})
		})

		Convey("When a fireworks event appears after the first poll", func() {
			rec := burndownRecord(50000, 1000)
			apply(o, rec, fake.Now())
			rec.LastEvent = model.NewEvent(model.EffectFireworks, fake.Now())
			apply(o, rec, fake.Now())

			Convey("Then fireworks particles play for 20s", func() {
				So(o.View().Fireworks, ShouldHaveLength, 12)
				fake.Advance(20 * time.Second)
				So(o.View().Fireworks, ShouldBeEmpty)
			})
		})
	})
}

func TestBurndownOverlayRun(t *testing.T) {
	Convey("Given a store whose goal is already met", t, func() {
		store := repository.NewMemoryStore(repository.WithInitialRecord(burndownRecord(1000, 600, 600)))
		o := overlay.NewBurndownOverlay(client.NewLocal(store),
			overlay.WithPollInterval(5*time.Millisecond),
			overlay.WithLogger(logger.Discard()))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- o.Run(ctx) }()

		Convey("When the overlay runs for a while", func() {
			So(eventually(func() bool {
				rec, _ := store.Get(context.Background())
				return rec.LastEvent != nil
			}), ShouldBeTrue)
			time.Sleep(50 * time.Millisecond)
			cancel()
			So(<-done, ShouldBeNil)

			Convey("Then exactly one fireworks event was stored", func() {
				rec, _ := store.Get(context.Background())
				So(rec.LastEvent.Name, ShouldEqual, model.EffectFireworks)
				So(store.Stats().Replaces, ShouldEqual, uint64(1))
				So(o.View().Summary.HasReachedZero, ShouldBeTrue)
			})
		})
	})
}
