// Package api exposes the claims service over HTTP: uploads, file status,
// retry/cancel, and the stored-claims query endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/config"
	"github.com/gyeh/claimstats/internal/coordinator"
	"github.com/gyeh/claimstats/internal/store"
)

// Server wires the router, middleware, and handlers.
type Server struct {
	config   config.Config
	router   chi.Router
	handlers *Handlers
}

// NewServer creates the API server. st may be nil when no database is
// configured; the store-backed endpoints then return 503.
func NewServer(cfg config.Config, coord *coordinator.Coordinator, st *store.Store, log zerolog.Logger) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(cfg, coord, st, log),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)
	s.router.Get("/api/health", s.handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/claims", func(r chi.Router) {
			r.Post("/upload", s.handlers.UploadFile)
			r.Get("/", s.handlers.ListClaims)
		})

		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handlers.ListFiles)
			r.Get("/{id}", s.handlers.GetFile)
			r.Post("/{id}/retry", s.handlers.RetryFile)
			r.Post("/{id}/cancel", s.handlers.CancelFile)
			r.Delete("/{id}", s.handlers.CancelFile)
		})

		r.Get("/anomalies", s.handlers.ListAnomalies)
		r.Get("/savings", s.handlers.GetSavings)
	})
}

// Router returns the chi router.
func (s *Server) Router() http.Handler {
	return s.router
}
