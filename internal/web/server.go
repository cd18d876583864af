package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/crm-sirene/internal/logging"
	"github.com/crm-sirene/internal/metrics"
	"github.com/crm-sirene/internal/reconcile"
	"github.com/crm-sirene/internal/registry"
	"github.com/crm-sirene/internal/web/handlers"
	"github.com/crm-sirene/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	engine     *reconcile.Engine
	summary    registry.Summary
	metrics    *metrics.Metrics
	logger     *zerolog.Logger
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a server over a loaded registry. A nil metrics
// disables /metrics.
func NewServer(config *Config, engine *reconcile.Engine, summary registry.Summary, m *metrics.Metrics) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	server := &Server{
		config:  config,
		engine:  engine,
		summary: summary,
		metrics: m,
		logger:  logging.Default(),
	}

	// Setup routes
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	apiHandler := &handlers.APIHandler{Engine: s.engine, Summary: s.summary, Loaded: time.Now()}
	matchHandler := &handlers.MatchHandler{Engine: s.engine, Metrics: s.metrics, TopN: s.config.TopN}

	s.router.HandleFunc("/healthz", apiHandler.Health).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/match", matchHandler.Match).Methods("POST")
	api.HandleFunc("/stats", apiHandler.GetStats).Methods("GET")
	api.HandleFunc("/buckets/{prefix}", apiHandler.GetBucket).Methods("GET")

	// Apply middleware
	s.router.Use(middleware.RequestLogging(s.logger))
	api.Use(middleware.Authentication(s.config.APIKey))
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}
