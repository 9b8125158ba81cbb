package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/config"
	"github.com/closetmatch/closet-sync/internal/queue"
	"github.com/closetmatch/closet-sync/pkg/log"
	"github.com/closetmatch/closet-sync/pkg/metrics"
)

/*
Server serves the agent's local observability endpoints:
- /health liveness probe
- /metrics Prometheus metrics
- /api/v1/queue the per-kind upload queue census
- /api/v1/queue/{id}/retry re-arms an exhausted upload
*/
type Server struct {
	address    string
	processor  *queue.Processor
	restServer *http.Server
}

func NewServer(cfg *config.Config, processor *queue.Processor) *Server {
	return &Server{
		address:   cfg.Sync.Address,
		processor: processor,
	}
}

// Handler builds the router. Exposed separately from Start so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(log.Logger(zap.L(), "http"))
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, HealthReply{Status: "ok"})
	})
	router.Handle("/metrics", metrics.NewPrometheusMetricsHandler().Handler())
	router.Get("/api/v1/queue", func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, QueueReply{Queues: s.processor.Stats()})
	})
	router.Post("/api/v1/queue/{id}/retry", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid job id", http.StatusBadRequest)
			return
		}
		if !s.processor.Retry(id) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	return router
}

func (s *Server) Start() {
	s.restServer = &http.Server{Addr: s.address, Handler: s.Handler()}

	err := s.restServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		zap.S().Named("server").Errorf("failed to start server: %s", err)
	}
}

func (s *Server) Stop(stopCh chan any) {
	if s.restServer == nil {
		close(stopCh)
		return
	}

	shutdownCtx, _ := context.WithTimeout(context.Background(), 10*time.Second) // nolint:govet
	doneCh := make(chan any)

	go func() {
		err := s.restServer.Shutdown(shutdownCtx)
		if err != nil {
			zap.S().Named("server").Errorf("failed to graceful shutdown the server: %s", err)
		}
		close(doneCh)
	}()

	<-doneCh

	close(stopCh)
}

type HealthReply struct {
	Status string `json:"status"`
}

type QueueReply struct {
	Queues map[queue.Kind]queue.KindStats `json:"queues"`
}

func (h HealthReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (q QueueReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
