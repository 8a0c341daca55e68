package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liskstats/aggregator/internal/core/domain"
	"github.com/liskstats/aggregator/internal/ingest"
	"github.com/liskstats/aggregator/internal/stats"
)

// Server exposes the dashboard read API. Reads never block on ingestion:
// they serve the last fully persisted snapshot, and a cache that has never
// been built yields an explicit not-ready payload with zeroed aggregates
// instead of an error.
type Server struct {
	engine *ingest.Engine
	guard  *ingest.Guard
	server *http.Server
}

// NewServer creates the HTTP server.
func NewServer(engine *ingest.Engine, guard *ingest.Guard, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		engine: engine,
		guard:  guard,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/update", s.handleUpdate)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type statsResponse struct {
	Ready    bool                   `json:"ready"`
	Cache    *domain.AggregateCache `json:"cache"`
	Analysis *stats.Analysis        `json:"analysis,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	cache, err := s.engine.CachedData(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	if cache == nil {
		writeJSON(w, http.StatusOK, statsResponse{
			Ready: false,
			Cache: domain.NewAggregateCache(),
		})
		return
	}

	analysis := stats.Compute(cache)
	writeJSON(w, http.StatusOK, statsResponse{
		Ready:    true,
		Cache:    cache,
		Analysis: &analysis,
	})
}

// handleUpdate triggers a synchronous guarded update: the gap guard picks
// quick update or full re-sync. The request deadline bounds the run.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httpError(w, http.StatusMethodNotAllowed, errors.New("use POST"))
		return
	}

	report, err := s.guard.Run(r.Context())
	if err != nil {
		httpError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cache, err := s.engine.CachedData(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "critical"})
		return
	}
	if cache == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "degraded", "reason": "cache not built yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
