// Package dashboard serves the browser dashboard and proxies its /api calls
// to the Monitor Service.
package dashboard

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/KOMKZ/go-yogan-monitor/application"
	"github.com/KOMKZ/go-yogan-monitor/httpclient"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed page.html
var pageSource string

var pageTemplate = template.Must(template.New("dashboard").Parse(pageSource))

// forwarded request and response headers
var (
	requestHeaders  = []string{"Accept", "Content-Type", "X-Trace-ID"}
	responseHeaders = []string{"Content-Type", "Cache-Control", "X-Trace-ID"}
)

// Server Dashboard Server
type Server struct {
	cfg      Config
	log      logger.Logger
	client   *httpclient.Client
	page     []byte
	registry *prometheus.Registry
	router   *gin.Engine

	mu   sync.Mutex
	http *application.HTTPServer
}

// New renders the page and builds the router; opts customise the proxy client
func New(cfg Config, log logger.Logger, opts ...httpclient.Option) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dashboard config: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return nil, err
	}
	var page bytes.Buffer
	if err := pageTemplate.Execute(&page, struct {
		WSURL       string
		ReconnectMS int64
	}{wsURL, cfg.ReconnectDelay.Milliseconds()}); err != nil {
		return nil, fmt.Errorf("render dashboard page: %w", err)
	}

	base := []httpclient.Option{
		httpclient.WithBaseURL(strings.TrimRight(cfg.MonitorURL, "/")),
		httpclient.WithTimeout(cfg.ProxyTimeout),
		httpclient.DisableRetry(),
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		client:   httpclient.NewClient(append(base, opts...)...),
		page:     page.Bytes(),
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(collectors.NewGoCollector())

	router, err := application.NewGinEngine(cfg.Server.Mode, application.DefaultMiddlewareConfig(), log, s.registry)
	if err != nil {
		return nil, err
	}
	router.GET("/", s.handlePage)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	router.Any("/api/*path", s.handleProxy)
	s.router = router

	s.log.DebugCtx(context.Background(), "Dashboard configured",
		zap.String("monitor_url", cfg.MonitorURL), zap.String("ws_url", wsURL))
	return s, nil
}

// Handler dashboard handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr bound address, "" when stopped
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http == nil {
		return ""
	}
	return s.http.Addr()
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return nil
	}

	srv := application.NewHTTPServer("dashboard", s.cfg.Server, s.router, s.log)
	if err := srv.Start(); err != nil {
		return err
	}
	s.http = srv
	s.log.InfoCtx(context.Background(), "Dashboard started",
		zap.String("addr", srv.Addr()), zap.String("monitor_url", s.cfg.MonitorURL))
	return nil
}

// Stop closes the listener; stopping a stopped server does nothing
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handlePage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.page)
}

// handleProxy forwards /api/* to the monitor. Upstream status codes pass
// through; a transport failure becomes 500 {"error": msg}.
func (s *Server) handleProxy(c *gin.Context) {
	req := httpclient.NewRequest(c.Request.Method, "/api"+c.Param("path"))
	req.Query = c.Request.URL.Query()
	for _, h := range requestHeaders {
		if v := c.GetHeader(h); v != "" {
			req.WithHeader(h, v)
		}
	}
	if c.Request.Body != nil && c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.WithBody(body)
	}

	resp, err := s.client.Do(c.Request.Context(), req)
	if err != nil {
		s.log.ErrorCtx(c.Request.Context(), "Monitor API request failed",
			zap.String("path", req.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for _, h := range responseHeaders {
		if v := resp.Headers.Get(h); v != "" {
			c.Header(h, v)
		}
	}
	contentType := resp.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}
