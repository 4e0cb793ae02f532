package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/okian/overlay/internal/adapters/http/client"
	app "github.com/okian/overlay/internal/app"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestServe(t *testing.T) {
	convey.Convey("Given a started service on a local listener", t, func() {
		svc := app.New(app.WithLogger(logger.Discard()))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- serve(ctx, ln, svc, logger.Discard()) }()

		base := "http://" + ln.Addr().String()
		remote := client.NewHTTP(base, client.WithTimeout(2*time.Second))

		convey.Convey("When a record is published and fetched back", func() {
			rec := model.DefaultRecord()
			rec.ScoreValue = "999"
			_, pubErr := remote.Publish(context.Background(), rec)
			got, fetchErr := remote.Fetch(context.Background())

			convey.Convey("Then the server round-trips it and stops cleanly", func() {
				convey.So(pubErr, convey.ShouldBeNil)
				convey.So(fetchErr, convey.ShouldBeNil)
				convey.So(got.ScoreValue, convey.ShouldEqual, "999")
				convey.So(got.Revision, convey.ShouldEqual, uint64(1))

				resp, err := http.Get(base + "/healthz")
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)

				cancel()
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("server did not stop")
				}
			})
		})

		convey.Reset(func() {
			cancel()
		})
	})

	convey.Convey("Given a service that was never started", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then serve refuses to run", func() {
			err := serve(context.Background(), ln, app.New(), logger.Discard())
			convey.So(err, convey.ShouldEqual, app.ErrNotStarted)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("System metrics update without panicking", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
