package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/overlay/internal/app"
	"github.com/okian/overlay/internal/cache/sqlite"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/internal/overlay"
	"github.com/okian/overlay/internal/panel"
	"github.com/okian/overlay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func execute(stdin string, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type env struct {
	svc       *app.Service
	srv       *httptest.Server
	cachePath string
}

func newEnv(t *testing.T, seed model.StreamRecord) *env {
	svc := app.New(app.WithInitialRecord(seed), app.WithLogger(logger.Discard()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	if err := svc.Register(mux); err != nil {
		t.Fatal(err)
	}
	e := &env{svc: svc, srv: httptest.NewServer(mux), cachePath: filepath.Join(t.TempDir(), "panel.db")}
	t.Setenv("OVERLAY_STORE_URL", e.srv.URL)
	t.Setenv("OVERLAY_CACHE_PATH", e.cachePath)
	t.Setenv("OVERLAY_LOG_LEVEL", "error")
	return e
}

func (e *env) close() {
	e.srv.Close()
	e.svc.Stop()
}

func (e *env) record() model.StreamRecord {
	rec, _ := e.svc.Store().Get(context.Background())
	return rec
}

func TestPanelCommands(t *testing.T) {
	Convey("Given a running service and an empty panel cache", t, func() {
		e := newEnv(t, model.DefaultRecord())
		defer e.close()

		Convey("When a field is set and the form submitted in separate runs", func() {
			_, err := execute("", "panel", "set", "score-value", "1200")
			So(err, ShouldBeNil)
			So(e.record().ScoreValue, ShouldEqual, model.DefaultRecord().ScoreValue)

			out, err := execute("", "panel", "submit")

			Convey("Then the cached draft is published", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "submitted\n")
				So(e.record().ScoreValue, ShouldEqual, "1200")
				So(e.record().LastEvent, ShouldBeNil)
			})
		})

		Convey("When burn-down entries are given comma separated", func() {
			_, err := execute("", "panel", "set", "burndown-entries", "100,200")
			So(err, ShouldBeNil)
			out, err := execute("", "panel", "show")
			So(err, ShouldBeNil)

			var snap panel.Snapshot
			So(json.Unmarshal([]byte(out), &snap), ShouldBeNil)
			So(snap.BurndownEntriesText, ShouldEqual, "100\n200")
		})

		Convey("When an effect is triggered", func() {
			out, err := execute("", "panel", "trigger", "star")

			Convey("Then the record carries the event", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "triggered STAR\n")
				So(e.record().LastEvent, ShouldNotBeNil)
				So(e.record().LastEvent.Name, ShouldEqual, model.EffectStar)
			})
		})

		Convey("When the arguments are wrong", func() {
			_, errEffect := execute("", "panel", "trigger", "confetti")
			_, errField := execute("", "panel", "set", "colour", "red")
			_, errSize := execute("", "panel", "set", "font-size", "big")

			Convey("Then the command fails without publishing", func() {
				So(errEffect, ShouldNotBeNil)
				So(errField, ShouldNotBeNil)
				So(errSize, ShouldNotBeNil)
				So(e.record().Revision, ShouldEqual, uint64(0))
			})
		})

		Convey("When messages and presets are edited", func() {
			_, err := execute("", "panel", "preset", "add", "Night")
			So(err, ShouldBeNil)
			_, err = execute("", "panel", "set", "preset", "Night")
			So(err, ShouldBeNil)
			_, err = execute("", "panel", "message", "add", "good evening")
			So(err, ShouldBeNil)
			_, err = execute("", "panel", "submit")
			So(err, ShouldBeNil)

			Convey("Then the active preset holds the message", func() {
				rec := e.record()
				So(rec.ActivePresetName, ShouldEqual, "Night")
				msgs := rec.ActiveMessages()
				So(len(msgs), ShouldEqual, 1)
				So(msgs[0].Text, ShouldEqual, "good evening")
			})
		})

		Convey("When the cache is corrupt", func() {
			b, err := sqlite.NewFileBackend(e.cachePath)
			So(err, ShouldBeNil)
			So(b.Set(context.Background(), panel.DefaultCacheKey, "not json"), ShouldBeNil)
			So(b.Close(), ShouldBeNil)

			_, showErr := execute("", "panel", "show")
			out, clearErr := execute("", "panel", "clear-cache")
			_, againErr := execute("", "panel", "show")

			Convey("Then only clear-cache recovers", func() {
				So(errors.Is(showErr, panel.ErrCorruptCache), ShouldBeTrue)
				So(clearErr, ShouldBeNil)
				So(out, ShouldEqual, "cache cleared\n")
				So(againErr, ShouldBeNil)
			})
		})
	})
}

func TestVoiceCommand(t *testing.T) {
	Convey("Given phrases on stdin", t, func() {
		e := newEnv(t, model.DefaultRecord())
		defer e.close()

		done := make(chan error, 1)
		go func() {
			_, err := execute("こんにちは\n今のナイス！\n", "panel", "voice")
			done <- err
		}()

		Convey("Then the matching phrase triggers STAR and the command ends with the input", func() {
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(10 * time.Second):
				t.Fatal("voice command did not finish")
			}
			rec := e.record()
			So(rec.LastEvent, ShouldNotBeNil)
			So(rec.LastEvent.Name, ShouldEqual, model.EffectStar)

			out, err := execute("", "panel", "show")
			So(err, ShouldBeNil)
			var snap panel.Snapshot
			So(json.Unmarshal([]byte(out), &snap), ShouldBeNil)
			So(snap.IsListening, ShouldBeFalse)
		})
	})
}

func TestOverlayCommands(t *testing.T) {
	Convey("Given a record whose burn-down goal is reached", t, func() {
		seed := model.DefaultRecord()
		seed.Burndown.TargetValue = 300
		seed.Burndown.Entries = []model.BurndownEntry{{Score: 100, Timestamp: 1}, {Score: 250, Timestamp: 2}}
		e := newEnv(t, seed)
		defer e.close()

		Convey("When the burn-down overlay runs once", func() {
			out, err := execute("", "burndown", "--once")
			So(err, ShouldBeNil)

			var view overlay.BurndownView
			So(json.Unmarshal([]byte(out), &view), ShouldBeNil)

			Convey("Then the view is complete and fireworks were posted", func() {
				So(view.Ready, ShouldBeTrue)
				So(view.Summary.Remaining, ShouldEqual, 0.0)
				So(view.Summary.Percentage, ShouldEqual, 100)
				So(e.record().LastEvent, ShouldNotBeNil)
				So(e.record().LastEvent.Name, ShouldEqual, model.EffectFireworks)
			})
		})

		Convey("When the score overlay runs once", func() {
			out, err := execute("", "score", "--once")
			So(err, ShouldBeNil)

			var view overlay.ScoreView
			So(json.Unmarshal([]byte(out), &view), ShouldBeNil)

			Convey("Then it shows the stored score", func() {
				So(view.Ready, ShouldBeTrue)
				So(view.ScoreValue, ShouldEqual, seed.ScoreValue)
				So(e.record().Revision, ShouldEqual, uint64(0))
			})
		})

		Convey("When the store is unreachable", func() {
			_, err := execute("", "--store-url", "http://127.0.0.1:1", "score", "--once")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestReport(t *testing.T) {
	Convey("report prints only changed views", t, func() {
		var out bytes.Buffer
		views := []string{"a", "a", "b"}
		n := 0
		ctx, cancel := context.WithCancel(context.Background())
		view := func() any {
			v := views[min(n, len(views)-1)]
			n++
			if n == len(views)+1 {
				cancel()
			}
			return v
		}
		So(report(ctx, &out, time.Millisecond, view), ShouldBeNil)
		So(out.String(), ShouldEqual, "\"a\"\n\"b\"\n")
	})
}
