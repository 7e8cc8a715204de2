// Package server exposes the engine's read surface over HTTP for the
// excluded UI and exporter layers: entries, analytics queries, alerts, and a
// live websocket stream. It renders no views.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/engine"
)

// Server is the read-only HTTP query API.
type Server struct {
	logger *zap.Logger
	engine *engine.Engine
	router *gin.Engine
	hub    *wsHub
	http   *http.Server
}

// New creates the HTTP server for an engine.
func New(eng *engine.Engine, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		logger: logger.Named("server"),
		engine: eng,
		router: router,
		hub:    newWSHub(logger),
		http:   &http.Server{Addr: addr, Handler: router},
	}
	eng.SubscribeEntries(s.hub)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	api.GET("/entries", s.handleEntries)
	api.GET("/stats", s.handleStats)
	api.GET("/trends", s.handleTrends)
	api.GET("/top/messages", s.handleTopMessages)
	api.GET("/top/sources", s.handleTopSources)
	api.GET("/top/errors", s.handleTopErrors)
	api.GET("/patterns", s.handlePatterns)
	api.GET("/anomalies", s.handleAnomalies)
	api.GET("/heatmap", s.handleHeatmap)
	api.GET("/alerts", s.handleAlerts)
	api.GET("/alerts/rules", s.handleAlertRules)
	api.POST("/alerts/:id/ack", s.handleAckAlert)
	api.GET("/retention/stats", s.handleRetentionStats)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains connections and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.engine.Analytics().Statistics()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"entries":      stats.Total,
		"health_score": stats.HealthScore,
	})
}

func (s *Server) handleEntries(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	c.JSON(http.StatusOK, s.engine.Page(offset, limit))
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Analytics().Statistics())
}

func (s *Server) handleTrends(c *gin.Context) {
	bucket := time.Hour
	if raw := c.Query("bucket"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			bucket = d
		}
	}
	c.JSON(http.StatusOK, s.engine.Analytics().Trend(bucket))
}

func (s *Server) handleTopMessages(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Analytics().TopMessages(intQuery(c, "n", 10)))
}

func (s *Server) handleTopSources(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Analytics().TopSources(intQuery(c, "n", 10)))
}

func (s *Server) handleTopErrors(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Analytics().TopErrors(intQuery(c, "n", 10)))
}

func (s *Server) handlePatterns(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Analytics().ErrorPatterns(intQuery(c, "min", 3)))
}

func (s *Server) handleAnomalies(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Analytics().Anomalies())
}

func (s *Server) handleHeatmap(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Analytics().HourlyHeatmap())
}

func (s *Server) handleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Alerts().RecentAlerts())
}

func (s *Server) handleAlertRules(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Alerts().Rules())
}

func (s *Server) handleAckAlert(c *gin.Context) {
	if s.engine.Alerts().Acknowledge(c.Param("id")) {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
}

func (s *Server) handleRetentionStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Retention().Stats())
}

func intQuery(c *gin.Context, name string, def int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}
