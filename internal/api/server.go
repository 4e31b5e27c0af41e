package api

import (
	"context"
	"net/http"
	"time"

	"example.com/alumni/services/events/config"
	"example.com/alumni/services/events/internal/metrics"
	"example.com/alumni/services/events/internal/services"
	"example.com/alumni/services/events/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services groups the domain services exposed over HTTP
type Services struct {
	Participation *services.ParticipationService
	Analytics     *services.AnalyticsService
	Recurring     *services.RecurringEventService
}

// Server represents the HTTP server
type Server struct {
	config     config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	checks     map[string]HealthCheck
}

// NewServer creates a new HTTP server. tracer may be nil.
func NewServer(cfg config.ServerConfig, svc Services, m *metrics.Metrics, tracer tracing.Tracer, checks map[string]HealthCheck) *Server {
	if m == nil {
		m = metrics.Default()
	}
	server := &Server{
		config:   cfg,
		services: svc,
		metrics:  m,
		tracer:   tracer,
		checks:   checks,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      server.router,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}

	return server
}

// Router returns the configured gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(RequestIDMiddleware())
	if s.config.CorsEnabled {
		router.Use(CORSMiddleware(s.config.CorsOrigins))
	}
	router.Use(gin.Recovery())
	if s.tracer != nil {
		if app := s.tracer.Application(); app != nil {
			router.Use(nrgin.Middleware(app))
		}
	}
	router.Use(LoggingMiddleware())
	router.Use(MetricsMiddleware(s.metrics))
	router.Use(IdentityMiddleware())

	NewMetricsHandler(s.metrics, s.checks).RegisterRoutes(router)

	v1 := router.Group("/api/v1")
	if s.services.Participation != nil {
		NewParticipationHandler(s.services.Participation).RegisterRoutes(v1)
	}
	if s.services.Analytics != nil {
		NewAnalyticsHandler(s.services.Analytics).RegisterRoutes(v1)
	}
	if s.services.Recurring != nil {
		NewRecurringEventHandler(s.services.Recurring).RegisterRoutes(v1)
	}

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
