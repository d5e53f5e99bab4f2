package ui

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"

	"cepop/domain/core"
	"cepop/internal/orchestrator"
	"cepop/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatusServer exposes the checkpoint store and the latest run summary as
// read-only JSON, so a long-running sweep can be inspected without poking
// at the store file. It never mutates orchestration state.
type StatusServer struct {
	router *chi.Mux
	store  ports.CheckpointStore

	mu      sync.RWMutex
	summary *orchestrator.Summary
}

// NewStatusServer creates the server over a checkpoint store.
func NewStatusServer(store ports.CheckpointStore) *StatusServer {
	s := &StatusServer{
		router: chi.NewRouter(),
		store:  store,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *StatusServer) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

func (s *StatusServer) setupRoutes() {
	s.router.Get("/api/records", s.handleRecords)
	s.router.Get("/api/summary", s.handleSummary)
	s.router.Get("/healthz", s.handleHealth)
}

// SetSummary publishes the latest run summary.
func (s *StatusServer) SetSummary(summary *orchestrator.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *StatusServer) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on addr.
func (s *StatusServer) Start(addr string) error {
	log.Printf("[Status] serving on http://%s", addr)
	return http.ListenAndServe(addr, s.router)
}

// handleRecords returns every job record, ordered by key for stable output.
func (s *StatusServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Load(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]ports.JobRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": out,
		"count":   len(out),
	})
}

// handleSummary returns the latest run summary, 404 before the first run.
func (s *StatusServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	summary := s.summary
	s.mu.RUnlock()

	if summary == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no run summary yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// The store is the only dependency worth probing.
	if _, err := s.store.Load(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": core.Now().String()})
}

func (s *StatusServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Status] encoding response: %v", err)
	}
}

func (s *StatusServer) writeError(w http.ResponseWriter, status int, err error) {
	log.Printf("[Status] %d: %v", status, err)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Serve runs the server until ctx is canceled.
func Serve(ctx context.Context, addr string, server *StatusServer) error {
	srv := &http.Server{Addr: addr, Handler: server.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
