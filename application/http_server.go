package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/KOMKZ/go-yogan-monitor/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MetricsNamespace HTTP 指标前缀
const MetricsNamespace = "yogan_monitor"

// NewGinEngine 创建 Gin 引擎并按顺序挂载中间件：
// CORS → TraceID → Metrics → RequestLog → Recovery。
// reg 为 nil 时不采集 HTTP 指标。
func NewGinEngine(mode string, mw MiddlewareConfig, log logger.Logger, reg prometheus.Registerer) (*gin.Engine, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	// 接管 Gin 自身输出（路由注册、调试信息）
	gin.DefaultWriter = logger.NewGinLogWriter(log)
	gin.DefaultErrorWriter = logger.NewGinLogWriter(log)
	if mode != "" {
		gin.SetMode(mode)
	}

	// gin.New() 而非 gin.Default()：日志与恢复使用自定义版本
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	if mw.CORS.Enable {
		engine.Use(middleware.CORSWithConfig(mw.CORS.CORSConfig))
	}
	if mw.TraceID.Enable {
		engine.Use(middleware.TraceID(mw.TraceID.TraceConfig))
	}
	if mw.Metrics.Enable && reg != nil {
		m, err := middleware.NewHTTPMetrics(reg, MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("register http metrics: %w", err)
		}
		engine.Use(m.Handler())
	}
	if mw.RequestLog.Enable {
		engine.Use(middleware.RequestLogWithConfig(log, mw.RequestLog.RequestLogConfig))
	}
	engine.Use(middleware.Recovery(log))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
	})

	return engine, nil
}

// HTTPServer 包装 http.Server：Start 非阻塞，端口绑定失败同步返回
type HTTPServer struct {
	name     string
	cfg      ServerConfig
	handler  http.Handler
	log      logger.Logger
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer name 仅用于日志（api / ws / dashboard）
func NewHTTPServer(name string, cfg ServerConfig, handler http.Handler, log logger.Logger) *HTTPServer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	cfg.ApplyDefaults()
	return &HTTPServer{name: name, cfg: cfg, handler: handler, log: log}
}

// Start 绑定端口后在后台 Serve
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("%s server: listen %s: %w", s.name, s.cfg.Addr(), err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: time.Duration(s.cfg.ReadTimeout) * time.Second,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.ErrorCtx(context.Background(), "HTTP server stopped unexpectedly",
				zap.String("server", s.name), zap.Error(err))
		}
	}()

	s.log.InfoCtx(context.Background(), "HTTP server started",
		zap.String("server", s.name), zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr 实际监听地址（端口 0 时为随机端口）
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr()
	}
	return s.listener.Addr().String()
}

// Port 实际监听端口
func (s *HTTPServer) Port() int {
	if s.listener == nil {
		return s.cfg.Port
	}
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return s.cfg.Port
}

// Shutdown 优雅关闭；未启动时直接返回
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", s.name, err)
	}
	s.log.InfoCtx(ctx, "HTTP server closed", zap.String("server", s.name))
	return nil
}

// ShutdownWithTimeout 带超时的优雅关闭
func (s *HTTPServer) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}
