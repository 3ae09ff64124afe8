package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quantbt/internal/config"
	"quantbt/internal/logger"
)

// Server serves the metrics and health endpoints.
type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

// NewServer builds the monitoring HTTP server. The metrics endpoint is only
// mounted when Prometheus is enabled in the configuration.
func NewServer(cfg config.ServerConfig, mon config.MonitoringConfig, registry *prometheus.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	if mon.PrometheusEnabled {
		handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		router.GET(mon.PrometheusPath, gin.WrapH(handler))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: logger.GetGlobalLogger(),
	}
}

// Start serves until Shutdown is called. It blocks.
func (s *Server) Start() error {
	s.log.Info("monitoring server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("monitoring server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
