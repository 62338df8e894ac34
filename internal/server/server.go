// Package server exposes the search facade over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/codehound/hound-search/internal/pkg/logger"
	"github.com/codehound/hound-search/internal/pkg/middleware"
	"github.com/codehound/hound-search/internal/search"
)

// Server serves the search API.
type Server struct {
	cfg        Config
	log        *logger.Logger
	httpServer *http.Server
	search     *search.Service
	limiter    *middleware.RateLimiter
}

// Config configures the server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout. Searches can block for
	// the full backend timeout, so this must exceed it.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration

	// RateLimit configures per-client throttling.
	RateLimit middleware.RateLimiterConfig
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "0.0.0.0:8090",
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    150 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		RateLimit:       middleware.DefaultRateLimiterConfig(),
	}
}

// New creates a server around a search service.
func New(cfg Config, svc *search.Service, log *logger.Logger) *Server {
	if cfg.Addr == "" {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		search:  svc,
		limiter: middleware.NewRateLimiter(cfg.RateLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /v1/search", s.limiter.Middleware(http.HandlerFunc(s.handleSearch)))

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start begins serving. It blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	s.log.Info("starting search server", "addr", s.cfg.Addr, "version", s.cfg.Version)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("stopping search server")
	return s.httpServer.Shutdown(shutdownCtx)
}
