// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	repository "github.com/okian/overlay/internal/adapters/repository"
	"github.com/okian/overlay/pkg/logger"
)

// Server wires HTTP routes for the stream data API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	streamDataHandler *StreamDataHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(store repository.Store, statsProvider StatsProvider, opts ...Option) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		streamDataHandler: NewStreamDataHandler(store, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	streamData := CORS(MetricsMiddleware(s.streamDataHandler.HandleStreamData, "stream_data"))
	mux.HandleFunc("/stream-data", streamData)
	mux.HandleFunc("/api/stream-data", streamData)
}

// Option configures the stream data handler.
type Option func(*StreamDataHandler)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *StreamDataHandler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMaxBodyBytes limits POST bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *StreamDataHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
