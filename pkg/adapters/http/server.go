// Package http serves the status of a long running zres process (watch
// mode): health, the last build report, Prometheus metrics and a build
// trigger.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/zres/internal/logging"
	"github.com/aretw0/zres/pkg/domain"
)

// BuildFunc runs one build and returns its report.
type BuildFunc func(ctx context.Context) (*domain.Report, error)

// Status is the body of GET /status.
type Status struct {
	State      string         `json:"state"`
	Builds     int            `json:"builds"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Last       *domain.Report `json:"last,omitempty"`
}

const (
	stateIdle    = "idle"
	stateRunning = "running"
)

// Server keeps the last report and exposes it over HTTP.
type Server struct {
	build   BuildFunc
	metrics http.Handler
	logger  *slog.Logger

	buildMu sync.Mutex

	mu         sync.RWMutex
	running    bool
	builds     int
	last       *domain.Report
	finishedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a status server. build is used by POST /build and may be
// nil, in which case the endpoint answers 501.
func NewServer(build BuildFunc, opts ...Option) *Server {
	s := &Server{
		build:  build,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start marks a build as running.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// Record stores the report of a finished build.
func (s *Server) Record(report *domain.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.builds++
	s.last = report
	s.finishedAt = time.Now()
}

// Status returns a snapshot of the current status.
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{State: stateIdle, Builds: s.builds, Last: s.last}
	if s.running {
		st.State = stateRunning
	}
	if !s.finishedAt.IsZero() {
		at := s.finishedAt
		st.FinishedAt = &at
	}
	return st
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.getHealth)
	r.Get("/status", s.getStatus)
	r.Post("/build", s.postBuild)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

// postBuild runs a build synchronously. A second request while one is
// running gets 409.
func (s *Server) postBuild(w http.ResponseWriter, r *http.Request) {
	if s.build == nil {
		http.Error(w, "builds are not enabled", http.StatusNotImplemented)
		return
	}
	if !s.buildMu.TryLock() {
		http.Error(w, "a build is already running", http.StatusConflict)
		return
	}
	defer s.buildMu.Unlock()

	s.Start()
	report, err := s.build(r.Context())
	if report == nil {
		report = &domain.Report{Status: domain.StatusFailed}
		if err != nil {
			report.Error = err.Error()
		}
	}
	s.Record(report)
	if err != nil {
		s.logger.Warn("build failed", "err", err)
	}

	code := http.StatusOK
	if report.Failed() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, report)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves h on addr until ctx is done, then shuts down with a
// grace period.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("status server listening", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		return nil
	}
}
