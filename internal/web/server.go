// Package web provides the HTTP server and handlers for the DataElevate UI
// and JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/dataelevate/internal/config"
	"github.com/JonMunkholm/dataelevate/internal/core"
	"github.com/JonMunkholm/dataelevate/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the DataElevate application.
type Server struct {
	cfg      *config.Config
	pipeline *core.Pipeline
	limiter  *core.ProcessLimiter
	gatherer prometheus.Gatherer
	validate *validator.Validate

	rate        *middleware.RateLimiter
	processRate *middleware.RateLimiter

	router *chi.Mux
	server *http.Server

	// sweep bounds the rate limiter cleanup goroutines.
	sweep context.Context
	stop  context.CancelFunc
}

// NewServer creates a new Server instance. gatherer backs /metrics and may
// be nil to use the default registry.
func NewServer(cfg *config.Config, pipeline *core.Pipeline, limiter *core.ProcessLimiter, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		limiter:  limiter,
		gatherer: gatherer,
		validate: validator.New(),
		router:   chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.rate = middleware.NewRateLimiter(cfg.Rate.RequestsPerMinute)
		s.processRate = middleware.NewRateLimiter(cfg.Rate.ProcessLimit)
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.sweep, s.stop = context.WithCancel(context.Background())
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.rate != nil {
		s.router.Use(s.rate.Handler(s.rateLimited))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Endpoints that run the pipeline share a stricter budget.
	s.router.Group(func(r chi.Router) {
		if s.processRate != nil {
			r.Use(s.processRate.Handler(s.rateLimited))
		}
		r.Post("/process", s.handleProcess)

		r.Route("/api", func(r chi.Router) {
			r.Post("/inspect", s.handleInspect)
			r.Post("/convert", s.handleConvert)
			r.Post("/chart", s.handleChart)
		})
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, errRateLimited)
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	if s.rate != nil {
		go s.rate.Run(s.sweep)
		go s.processRate.Run(s.sweep)
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running batches.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()

	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain pipeline runs: %w", err))
	}
	return errors.Join(errs...)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			// Prevent MIME type sniffing
			h.Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			h.Set("X-Frame-Options", "DENY")

			if csp {
				// Inline SVG charts need inline styles; no scripts are served.
				h.Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'")
			}

			// Control referrer information
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
