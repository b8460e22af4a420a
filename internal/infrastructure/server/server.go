package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/filesystem-mcp/internal/api/http"
	"github.com/GriffinCanCode/filesystem-mcp/internal/api/middleware"
	"github.com/GriffinCanCode/filesystem-mcp/internal/config"
	"github.com/GriffinCanCode/filesystem-mcp/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/filesystem-mcp/internal/mcp"
	"github.com/GriffinCanCode/filesystem-mcp/internal/service"
	"github.com/GriffinCanCode/filesystem-mcp/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	handler http.Handler
	logger  *zap.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, registry *service.Registry, mcpServer *mcp.Server, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		perClient := middleware.DefaultRateLimitConfig()
		perClient.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		perClient.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(perClient))
		if rps := cfg.RateLimit.GlobalRequestsPerSecond; rps > 0 {
			logger.Info("Global rate limiting enabled",
				zap.Int("rps", rps),
				zap.Int("burst", cfg.RateLimit.GlobalBurstOrDefault()),
			)
			router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: rps,
				Burst:             cfg.RateLimit.GlobalBurstOrDefault(),
			}))
		}
	}

	handlers := apihttp.NewHandlers(registry, mcpServer, metrics, logger)
	wsHandler := ws.NewHandler(mcpServer, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	router.GET("/tools", handlers.ListTools)
	router.POST("/tools/:name", handlers.ExecuteTool)
	router.POST("/mcp", handlers.RPC)

	router.GET("/ws", wsHandler.HandleConnection)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return &Server{
		router:  router,
		handler: gzhttp.GzipHandler(router),
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
}

// Handler returns the root handler with response compression applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully. Upgraded WebSocket connections are not waited for.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
