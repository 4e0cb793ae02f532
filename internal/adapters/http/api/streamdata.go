package api

import (
	"errors"
	"io"
	"net/http"

	repository "github.com/okian/overlay/internal/adapters/repository"
	model "github.com/okian/overlay/internal/domain/model"
	"github.com/okian/overlay/pkg/logger"
)

const defaultMaxBodyBytes = 1 << 20

// StreamDataHandler serves the shared stream record.
type StreamDataHandler struct {
	store        repository.Store
	log          logger.Logger
	maxBodyBytes int64
}

// NewStreamDataHandler creates a handler over store.
func NewStreamDataHandler(store repository.Store, opts ...Option) *StreamDataHandler {
	h := &StreamDataHandler{
		store:        store,
		log:          logger.Named("api"),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleStreamData handles GET and POST /stream-data.
func (h *StreamDataHandler) HandleStreamData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

func (h *StreamDataHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stream_data"
	rec, err := h.store.Get(r.Context())
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *StreamDataHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_stream_data"
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	patch, err := model.DecodePatch(body)
	if err != nil {
		if !errors.Is(err, model.ErrInvalidType) {
			err = WrapKind(op, ErrBadRequest, err)
		}
		h.fail(w, r, op, err)
		return
	}

	rec, err := h.store.Replace(r.Context(), patch)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	h.log.Debug(r.Context(), "stream data replaced", logger.Uint64("revision", rec.Revision))
	writeJSON(w, http.StatusOK, rec)
}

func (h *StreamDataHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind, status, code := classify(err)
	wrapped := err
	var ke *KindError
	if !errors.As(err, &ke) {
		wrapped = WrapKind(op, kind, err)
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "stream data request failed", logger.String("op", op), logger.Error(err))
		writeError(w, status, code, NewKind(op, kind))
		return
	}
	h.log.Debug(r.Context(), "stream data request rejected", logger.String("op", op), logger.Error(err))
	writeError(w, status, code, wrapped)
}
