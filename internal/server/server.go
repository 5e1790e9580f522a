// Package server exposes the fetch pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Sternrassler/airtable-proxy/pkg/metrics"
	"github.com/Sternrassler/airtable-proxy/pkg/proxy"
)

// Options configures a Server.
type Options struct {
	Fetcher *proxy.Fetcher
	Host    string
	Port    int

	// RequestTimeout bounds one page request; 0 disables it
	RequestTimeout time.Duration

	Logger zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	fetcher        *proxy.Fetcher
	requestTimeout time.Duration
	logger         zerolog.Logger
	addr           string
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	if opts.Fetcher == nil {
		panic("server: fetcher must not be nil")
	}

	s := &Server{
		router:         chi.NewRouter(),
		fetcher:        opts.Fetcher,
		requestTimeout: opts.RequestTimeout,
		logger:         opts.Logger.With().Str("component", "server").Logger(),
		addr:           fmt.Sprintf("%s:%d", opts.Host, opts.Port),
	}

	r := s.router
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request served")
	}))
	r.Use(middleware.Recoverer)

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/api/{table}/list/{page}", s.handleList)
	r.Get("/api", s.handleInvalidPath)
	r.Get("/api/*", s.handleInvalidPath)

	// Any other GET starting with /api, e.g. /apidocs, is an invalid path too.
	r.NotFound(s.handleNotFound)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing
func (s *Server) Handler() http.Handler {
	return s.router
}
