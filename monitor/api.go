package monitor

import (
	"net/http"
	"strconv"

	"github.com/KOMKZ/go-yogan-monitor/application"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
	alertsLimit     = 100
	dashboardAlerts = 10
	dashboardLogs   = 20
)

// buildRouter gin engine for the monitor API; HTTP metrics land on the exporter registry
func (s *Service) buildRouter() (*gin.Engine, error) {
	r, err := application.NewGinEngine(s.cfg.Server.Mode, s.cfg.Middleware, s.log, s.deps.Exporter.Registry())
	if err != nil {
		return nil, err
	}

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.deps.Exporter.Handler()))

	api := r.Group("/api")
	{
		api.GET("/metrics", s.handleMetrics)
		api.GET("/alerts", s.handleAlerts)
		api.GET("/logs", s.handleLogs)
		api.GET("/dashboard", s.handleDashboard)
		api.GET("/health/report", s.handleReport)
	}
	return r, nil
}

// Handler monitor API handler
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) handleHealth(c *gin.Context) {
	status := health.StatusUnknown
	if r := s.deps.Engine.Latest(); r != nil {
		status = r.Status
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": s.clock.Now(),
		"uptime":    s.clock.Since(s.started).Seconds(),
		"version":   s.cfg.Version,
		"metrics":   s.deps.Metrics.Snapshot(),
	})
}

func (s *Service) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Metrics.Snapshot())
}

func (s *Service) handleAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Alerts.Store().Recent(alertsLimit))
}

func (s *Service) handleLogs(c *gin.Context) {
	level := c.DefaultQuery("level", logger.LevelAll)
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	entries, err := s.readLogs(c, level, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Service) handleDashboard(c *gin.Context) {
	logs, err := s.readLogs(c, logger.LevelAll, dashboardLogs)
	if err != nil {
		logs = []logger.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"metrics": s.deps.Metrics.Snapshot(),
		"alerts":  s.deps.Alerts.Store().Recent(dashboardAlerts),
		"logs":    logs,
		"config":  s.PublicConfig(),
	})
}

func (s *Service) handleReport(c *gin.Context) {
	r := s.deps.Engine.Latest()
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no health report yet"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Service) readLogs(c *gin.Context, level string, limit int) ([]logger.Entry, error) {
	entries, err := logger.ReadTail(s.cfg.LogFile, level, limit)
	if err != nil {
		s.log.ErrorCtx(c.Request.Context(), "Failed to read log file",
			zap.String("path", s.cfg.LogFile), zap.Error(err))
	}
	return entries, err
}
