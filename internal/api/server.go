// Package api wires the HTTP server: router, middleware and handlers.
package api

import (
	"net/http"

	"github.com/framecast/backend/internal/api/handlers"
	"github.com/framecast/backend/internal/api/middleware"
	"github.com/framecast/backend/internal/api/websocket"
	"github.com/framecast/backend/internal/modules/jobs"
	"github.com/framecast/backend/internal/shared/config"
	"github.com/framecast/backend/internal/shared/database"
	"github.com/framecast/backend/internal/shared/metrics"
	"github.com/framecast/backend/internal/shared/storage"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServerConfig holds dependencies for the API server
type ServerConfig struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *database.Postgres
	Redis      *database.Redis
	Storage    *storage.Service
	WSHub      *websocket.Hub
	JobsModule *jobs.Module
	Metrics    *metrics.Metrics
}

// Server represents the API server
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	db         *database.Postgres
	redis      *database.Redis
	storage    *storage.Service
	wsHub      *websocket.Hub
	jobsModule *jobs.Module
	metrics    *metrics.Metrics
}

// NewServer creates a new API server
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		config:     cfg.Config,
		logger:     cfg.Logger,
		db:         cfg.DB,
		redis:      cfg.Redis,
		storage:    cfg.Storage,
		wsHub:      cfg.WSHub,
		jobsModule: cfg.JobsModule,
		metrics:    cfg.Metrics,
	}
}

// Router returns the configured HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.db, s.redis)
	jobHandler := handlers.NewJobHandler(s.jobsModule, s.storage, s.logger)
	wsHandler := handlers.NewWebSocketHandler(s.wsHub, s.logger)

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Health)
		r.Get("/ready", healthHandler.Ready)

		// Timeline validation
		r.Post("/timelines/validate", jobHandler.ValidateTimeline)

		// Render jobs
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobHandler.CreateJob)
			r.Get("/", jobHandler.ListJobs)
			r.Get("/{id}", jobHandler.GetJob)
			r.Delete("/{id}", jobHandler.CancelJob)
			r.Get("/{id}/download", jobHandler.DownloadJob)
		})

		// WebSocket
		r.Get("/ws", wsHandler.HandleConnection)
	})

	return r
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.Router()
}
