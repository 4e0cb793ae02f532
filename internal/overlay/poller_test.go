package overlay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/overlay"
	"github.com/okian/overlay/pkg/clock"
	"github.com/okian/overlay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type response struct {
	rec  model.StreamRecord
	err  error
	gate chan struct{}
}

// scriptedFetcher answers the nth call with the nth response, repeating the
// last one once the script runs out.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses []response
	calls     int
}

func (f *scriptedFetcher) Fetch(ctx context.Context) (model.StreamRecord, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	r := f.responses[i]
	f.mu.Unlock()

	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return model.StreamRecord{}, ctx.Err()
		}
	}
	return r.rec, r.err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSink struct {
	mu        sync.Mutex
	revisions []uint64
}

func (s *recordingSink) Apply(rec model.StreamRecord, _ time.Time) func(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions = append(s.revisions, rec.Revision)
	return nil
}

func (s *recordingSink) applied() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.revisions...)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func withRevision(rev uint64) model.StreamRecord {
	rec := model.DefaultRecord()
	rec.Revision = rev
	return rec
}

func TestPoller(t *testing.T) {
	Convey("Given a slow first fetch and a fast second one", t, func() {
		slow := make(chan struct{})
		f := &scriptedFetcher{responses: []response{
			{rec: withRevision(1), gate: slow},
			{rec: withRevision(2)},
		}}
		sink := &recordingSink{}
		fake := clock.NewFake(time.Unix(0, 0))
		p := overlay.NewPoller("test", f, sink, overlay.WithClock(fake), overlay.WithLogger(logger.Discard()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		So(eventually(func() bool { return f.callCount() == 1 && fake.Pending() == 1 }), ShouldBeTrue)
		fake.Advance(2 * time.Second)
		So(eventually(func() bool { return len(sink.applied()) == 1 }), ShouldBeTrue)

		Convey("When the slow response finally resolves", func() {
			close(slow)
			So(eventually(func() bool { return f.callCount() == 2 }), ShouldBeTrue)
			time.Sleep(10 * time.Millisecond)

			Convey("Then the older revision is dropped", func() {
				So(sink.applied(), ShouldResemble, []uint64{2})
				rev, ok := p.Revision()
				So(ok, ShouldBeTrue)
				So(rev, ShouldEqual, uint64(2))
				cancel()
				So(<-done, ShouldBeNil)
			})
		})

		Convey("When the poller stops before the slow response resolves", func() {
			cancel()

			Convey("Then Run waits for the fetch and ignores it", func() {
				So(<-done, ShouldBeNil)
				So(sink.applied(), ShouldResemble, []uint64{2})
				So(fake.Pending(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a store that restarts and resets its revision", t, func() {
		restarted := withRevision(0)
		restarted.ScoreLabel = "after restart"
		f := &scriptedFetcher{responses: []response{
			{rec: withRevision(5)},
			{rec: restarted},
		}}
		sink := &recordingSink{}
		fake := clock.NewFake(time.Unix(0, 0))
		p := overlay.NewPoller("test", f, sink, overlay.WithClock(fake), overlay.WithLogger(logger.Discard()))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		So(eventually(func() bool { return len(sink.applied()) == 1 && fake.Pending() == 1 }), ShouldBeTrue)

		Convey("When the next poll returns revision 0", func() {
			fake.Advance(2 * time.Second)

			Convey("Then the restarted record is applied", func() {
				So(eventually(func() bool { return len(sink.applied()) == 2 }), ShouldBeTrue)
				So(sink.applied(), ShouldResemble, []uint64{5, 0})
				rev, ok := p.Revision()
				So(ok, ShouldBeTrue)
				So(rev, ShouldEqual, uint64(0))
				cancel()
				So(<-done, ShouldBeNil)
			})
		})
	})

	Convey("Given a slow fetch from before a restart and a fast one after it", t, func() {
		slow := make(chan struct{})
		f := &scriptedFetcher{responses: []response{
			{rec: withRevision(7), gate: slow},
			{rec: withRevision(0)},
		}}
		sink := &recordingSink{}
		fake := clock.NewFake(time.Unix(0, 0))
		p := overlay.NewPoller("test", f, sink, overlay.WithClock(fake), overlay.WithLogger(logger.Discard()))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		So(eventually(func() bool { return f.callCount() == 1 && fake.Pending() == 1 }), ShouldBeTrue)
		fake.Advance(2 * time.Second)
		So(eventually(func() bool { return len(sink.applied()) == 1 }), ShouldBeTrue)

		Convey("Then the earlier dispatch is dropped despite its higher revision", func() {
			close(slow)
			time.Sleep(20 * time.Millisecond)
			So(sink.applied(), ShouldResemble, []uint64{0})
			cancel()
			So(<-done, ShouldBeNil)
		})
	})

	Convey("Given a fetch that fails", t, func() {
		f := &scriptedFetcher{responses: []response{
			{err: errors.New("connection refused")},
			{rec: withRevision(5)},
		}}
		sink := &recordingSink{}
		fake := clock.NewFake(time.Unix(0, 0))
		p := overlay.NewPoller("test", f, sink, overlay.WithClock(fake), overlay.WithLogger(logger.Discard()))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- p.Run(ctx) }()

		Convey("Then polling continues on the next tick without backoff", func() {
			So(eventually(func() bool { return f.callCount() == 1 && fake.Pending() == 1 }), ShouldBeTrue)
			So(sink.applied(), ShouldBeEmpty)
			fake.Advance(2 * time.Second)
			So(eventually(func() bool { return len(sink.applied()) == 1 }), ShouldBeTrue)
			cancel()
			So(<-done, ShouldBeNil)
		})
	})
}
