package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/overlay/internal/adapters/http/api"
	repository "github.com/okian/overlay/internal/adapters/repository"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type brokenStore struct{}

func (brokenStore) Get(context.Context) (model.StreamRecord, error) {
	return model.StreamRecord{}, errors.New("disk on fire")
}

func (brokenStore) Replace(context.Context, model.RecordPatch) (model.StreamRecord, error) {
	return model.StreamRecord{}, errors.New("disk on fire")
}

func newMux(store repository.Store) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(store, &mockStatsProvider{stats: map[string]interface{}{"revision": 0}},
		api.WithLogger(logger.Discard())).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeRecord(w *httptest.ResponseRecorder) model.StreamRecord {
	var rec model.StreamRecord
	So(json.Unmarshal(w.Body.Bytes(), &rec), ShouldBeNil)
	return rec
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(repository.NewMemoryStore())

		Convey("Then health serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats serves JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "revision")
		})

		Convey("Then both stream data paths serve the record", func() {
			for _, path := range []string{"/stream-data", "/api/stream-data"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
				So(decodeRecord(w).ScoreLabel, ShouldEqual, model.DefaultRecord().ScoreLabel)
			}
		})

		Convey("Then a CORS preflight is answered without touching the store", func() {
			req := httptest.NewRequest(http.MethodOptions, "/stream-data", nil)
			req.Header.Set("Origin", "http://obs.local")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "http://obs.local")
		})
	})
}

func TestStreamDataHandler(t *testing.T) {
	Convey("Given a memory store behind the API", t, func() {
		store := repository.NewMemoryStore()
		mux := newMux(store)

		Convey("When a field has the wrong type", func() {
			w := do(mux, http.MethodPost, "/stream-data", `{"scoreLabel": 123}`)
			rec, _ := store.Get(context.Background())

			Convey("Then the response is 400 and the store is unchanged", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["code"], ShouldEqual, "bad_request")
				So(body["message"], ShouldContainSubstring, "scoreLabel")
				So(rec.ScoreLabel, ShouldEqual, model.DefaultRecord().ScoreLabel)
				So(rec.Revision, ShouldEqual, uint64(0))
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/stream-data", `{oops`)

			Convey("Then the response is 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a value is out of range", func() {
			w := do(mux, http.MethodPost, "/stream-data", `{"fontSize": 0}`)

			Convey("Then the response is 400 invalid_record", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "invalid_record")
			})
		})

		Convey("When a partial update is posted", func() {
			w := do(mux, http.MethodPost, "/api/stream-data", `{"scoreValue": "400+", "lastEvent": {"name": "STAR", "timestamp": 42}}`)

			Convey("Then the merged record is returned with a new revision", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				rec := decodeRecord(w)
				So(rec.ScoreValue, ShouldEqual, "400+")
				So(rec.ScoreLabel, ShouldEqual, model.DefaultRecord().ScoreLabel)
				So(rec.LastEvent, ShouldResemble, &model.Event{Name: model.EffectStar, Timestamp: 42})
				So(rec.Revision, ShouldEqual, uint64(1))
			})

			Convey("And a later GET sees it", func() {
				rec := decodeRecord(do(mux, http.MethodGet, "/stream-data", ""))
				So(rec.ScoreValue, ShouldEqual, "400+")
			})
		})

		Convey("When an unsupported method is used", func() {
			w := do(mux, http.MethodDelete, "/stream-data", "")

			Convey("Then the response is 405", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})

	Convey("Given a failing store", t, func() {
		mux := newMux(brokenStore{})

		Convey("Then GET and POST return 500 without leaking the cause", func() {
			for _, w := range []*httptest.ResponseRecorder{
				do(mux, http.MethodGet, "/stream-data", ""),
				do(mux, http.MethodPost, "/stream-data", `{}`),
			} {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
			}
		})
	})
}

func TestKindError(t *testing.T) {
	Convey("Given a wrapped error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(api.NewKind("api.op", api.ErrInternal).Error(), ShouldEqual, "api.op: internal error")
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When requesting metrics", func() {
			w := httptest.NewRecorder()
			handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then the status is OK", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the client asks for JSON", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Accept", "application/json")
			handler.HandleHealth(w, req)

			Convey("Then Prometheus text is served anyway", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		handler := api.NewStatsHandler(&mockStatsProvider{stats: map[string]interface{}{"replaces": 3}})

		Convey("When a POST is sent", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest(http.MethodPost, "/stats", nil))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a GET is sent", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the stats are encoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"replaces":3`)
			})
		})
	})
}
