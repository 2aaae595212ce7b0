// Package api exposes the progression engine over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/ecoloop/internal/engine"
	"github.com/abhisek/ecoloop/internal/progress"
	"github.com/abhisek/ecoloop/internal/status"
)

// Server represents the HTTP API server
type Server struct {
	router   *chi.Mux
	engine   *engine.Engine
	tracker  *progress.Tracker
	resolver *status.Resolver
	logger   *slog.Logger
}

// NewServer creates a new API server over eng. A nil logger uses
// slog.Default().
func NewServer(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:   eng,
		tracker:  eng.Tracker(),
		resolver: status.NewResolver(eng.Tracker()),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handle(s.handleHealth))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/levels", s.handle(s.handleListLevels))

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/map", s.handle(s.handleMap))
			r.Get("/wallet", s.handle(s.handleWallet))

			r.Route("/levels/{levelID}", func(r chi.Router) {
				r.Get("/", s.handle(s.handleGetProgress))
				r.Post("/start", s.handle(s.handleStart))
				r.Post("/watch", s.handle(s.handleWatch))
				r.Post("/quiz", s.handle(s.handleQuiz))
				r.Post("/abandon", s.handle(s.handleAbandon))
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
