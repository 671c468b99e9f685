// Package health implements the health/admin surface (spec §4.10, C10):
// liveness, readiness, and metrics endpoints, routed with
// github.com/go-chi/chi/v5.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dln-labs/dln-ingest/internal/bus"
	"github.com/dln-labs/dln-ingest/internal/checkpoint"
)

// Metrics snapshot served on /metrics (spec §4.10 exact field set).
type Metrics struct {
	Mode               string `json:"mode"`
	ProgramID          string `json:"programId"`
	BatchSize          int    `json:"batchSize"`
	Concurrency        int    `json:"concurrency"`
	RetryAttempts      int    `json:"retryAttempts"`
	TargetTransactions int64  `json:"targetTransactions"`
}

// ModeFunc returns the coordinator's current mode string for /metrics.
type ModeFunc func() string

// Server hosts the three probes an orchestrator polls.
type Server struct {
	log    zerolog.Logger
	http   *http.Server
	store  *checkpoint.Store
	bus    *bus.Bus
	mode   ModeFunc
	fields Metrics
}

// New builds a Server bound to addr. fields carries the static fields
// of the /metrics response; mode supplies the dynamic one.
func New(addr string, store *checkpoint.Store, b *bus.Bus, mode ModeFunc, fields Metrics, log zerolog.Logger) *Server {
	s := &Server{
		log:    log.With().Str("component", "health").Logger(),
		store:  store,
		bus:    b,
		mode:   mode,
		fields: fields,
	}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

// Handler returns the underlying http.Handler, for tests that want to
// drive requests through httptest without binding a real listener.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start begins serving in the background. Errors after a graceful
// Close are not returned to the caller.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("health server stopped unexpectedly")
		}
	}()
}

// Shutdown gracefully stops the HTTP server (spec §4.6 "stop health
// server" during shutdown).
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "reason": "checkpoint store unreachable"})
		return
	}
	if s.bus != nil {
		if err := s.bus.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "reason": "message bus unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.fields
	if s.mode != nil {
		m.Mode = s.mode()
	}
	writeJSON(w, http.StatusOK, m)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
