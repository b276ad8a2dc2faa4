// Package api is the HTTP surface: job submission and polling, digest
// downloads, and operational introspection.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gitdigest/internal/config"
	"gitdigest/internal/metrics"
	"gitdigest/internal/pipeline"
	"gitdigest/internal/summarize"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	llm          *summarize.Client
	metrics      *metrics.Metrics
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, llm *summarize.Client, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		llm:          llm,
		metrics:      m,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.metrics))
	r.Use(CORS(s.cfg.AllowedOrigin))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Authenticated endpoints. An empty API key disables auth, which is the
	// local-development default.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/v1/summarize", s.handleSummarize)
		r.Get("/api/v1/summarize/{jobID}", s.handleSummarizeStatus)

		r.Get("/api/v1/digests/{filename}", s.handleDownloadDigest)
		r.Get("/api/v1/digests/{filename}/preview", s.handlePreviewDigest)

		r.Get("/api/v1/prompt", s.handlePrompt)
		r.Get("/api/v1/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
