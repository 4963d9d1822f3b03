package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/manager"
	"github.com/goran-ethernal/ChainReplay/pkg/api/docs"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
)

// Ensure docs are initialized
var _ = docs.SwaggerInfo

const shutdownCtxTimeout = 10 * time.Second

// Server represents the API HTTP server.
type Server struct {
	config  *config.APIConfig
	manager *manager.Manager
	handler *Handler
	stream  *Stream
	server  *http.Server
	log     *logger.Logger
}

// NewServer creates a new API server.
func NewServer(cfg *config.APIConfig, m *manager.Manager, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	handler := NewHandler(m, log)

	var origins []string
	if cfg.CORS.Enabled {
		origins = cfg.CORS.AllowedOrigins
	}
	stream := NewStream(handler, origins)

	mux := http.NewServeMux()

	// Health and info endpoints
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /api/v1/overview", handler.GetOverview)

	// Event search and processing state
	mux.HandleFunc("GET /api/v1/events", handler.SearchEvents)
	mux.HandleFunc("GET /api/v1/events/{id}", handler.GetEvent)
	mux.HandleFunc("POST /api/v1/events/{id}/processed", handler.MarkProcessed)
	mux.HandleFunc("POST /api/v1/events/{id}/retry", handler.RecordRetry)
	mux.HandleFunc("PUT /api/v1/events/{id}/status", handler.UpdateStatus)

	// Point lookups
	mux.HandleFunc("GET /api/v1/transactions/{hash}/events", handler.EventsByTransaction)
	mux.HandleFunc("GET /api/v1/addresses/{address}/events", handler.EventsByAddress)
	mux.HandleFunc("GET /api/v1/names/{name}/events", handler.EventsByName)
	mux.HandleFunc("GET /api/v1/blocks/{from}/{to}/events", handler.EventsByBlockRange)
	mux.HandleFunc("GET /api/v1/time-range/events", handler.EventsByTimeRange)

	// Analytics endpoints
	mux.HandleFunc("GET /api/v1/stats", handler.GetStats)
	mux.HandleFunc("GET /api/v1/aggregate", handler.Aggregate)

	// Maintenance endpoints
	mux.HandleFunc("GET /api/v1/export", handler.Export)
	mux.HandleFunc("POST /api/v1/import", handler.Import)
	mux.HandleFunc("POST /api/v1/maintenance/cleanup", handler.Cleanup)
	mux.HandleFunc("POST /api/v1/maintenance/rebuild", handler.Rebuild)
	mux.HandleFunc("GET /api/v1/maintenance/consistency", handler.Consistency)

	// Replay control
	mux.HandleFunc("GET /api/v1/replay", handler.GetReplay)
	mux.HandleFunc("POST /api/v1/replay", handler.StartReplay)
	mux.HandleFunc("POST /api/v1/replay/checkpoint", handler.ResumeCheckpoint)
	mux.HandleFunc("POST /api/v1/replay/pause", handler.PauseReplay)
	mux.HandleFunc("POST /api/v1/replay/resume", handler.ResumeReplay)
	mux.HandleFunc("POST /api/v1/replay/stop", handler.StopReplay)
	mux.HandleFunc("GET /api/v1/replay/progress", handler.GetReplayProgress)
	mux.HandleFunc("GET /api/v1/replay/statistics", handler.GetReplayStatistics)
	mux.HandleFunc("GET /api/v1/replay/history", handler.GetReplayHistory)
	mux.HandleFunc("GET /api/v1/replay/sessions/{id}", handler.GetReplaySession)
	mux.HandleFunc("GET /api/v1/replay/defaults", handler.GetReplayDefaults)

	// Notification stream
	mux.Handle("GET /api/v1/stream", stream)

	// Swagger documentation endpoints
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
	))

	// Apply middleware
	var h http.Handler = mux
	h = RecoveryMiddleware(log)(h)
	h = LoggingMiddleware(log)(h)

	if cfg.CORS.Enabled {
		h = CORSMiddleware(cfg.CORS.AllowedOrigins)(h)
	}

	// Timeout defaults are applied by config.ApplyDefaults
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
		IdleTimeout:  cfg.IdleTimeout.Duration,
	}
	// Shutdown does not track hijacked connections
	httpServer.RegisterOnShutdown(stream.Close)

	return &Server{
		config:  cfg,
		manager: m,
		handler: handler,
		stream:  stream,
		server:  httpServer,
		log:     log,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the API server until ctx is cancelled, then shuts it down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API server is disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.log.Infof("Starting API server on %s", ln.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("API server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownCtxTimeout)
	defer cancel()

	s.log.Info("Shutting down API server...")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown error: %w", err)
	}

	s.log.Infow("API server stopped", "dropped_stream_notifications", s.stream.Dropped())
	return nil
}
