package middleware

import (
	"time"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogConfig HTTP request log configuration
type RequestLogConfig struct {
	// SkipPaths paths that are never logged (e.g. /health polled by probes)
	SkipPaths []string `mapstructure:"skip_paths"`
}

// DefaultRequestLogConfig skips /metrics, scraped every few seconds
func DefaultRequestLogConfig() RequestLogConfig {
	return RequestLogConfig{
		SkipPaths: []string{"/metrics"},
	}
}

// RequestLog logs every request with the default configuration
func RequestLog(log logger.Logger) gin.HandlerFunc {
	return RequestLogWithConfig(log, DefaultRequestLogConfig())
}

// RequestLogWithConfig replaces gin.Logger(). Level follows the status:
// 5xx error, 4xx warn, anything else info. The trace id is picked up from
// the request context by the logger.
func RequestLogWithConfig(log logger.Logger, cfg RequestLogConfig) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNopLogger()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("body_size", c.Writer.Size()),
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			fields = append(fields, zap.String("error", msg))
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorCtx(ctx, "HTTP request", fields...)
		case status >= 400:
			log.WarnCtx(ctx, "HTTP request", fields...)
		default:
			log.InfoCtx(ctx, "HTTP request", fields...)
		}
	}
}
