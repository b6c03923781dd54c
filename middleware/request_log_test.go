package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestLog_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewTestCtxLogger()

	router := gin.New()
	router.Use(RequestLog(log))
	router.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	router.GET("/bad", func(c *gin.Context) { c.JSON(400, gin.H{"error": "bad"}) })
	router.GET("/error", func(c *gin.Context) { c.JSON(500, gin.H{"error": "internal error"}) })

	for _, path := range []string{"/ok", "/bad", "/error"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	assert.True(t, log.HasLogWithField("INFO", "HTTP request", "path", "/ok"))
	assert.True(t, log.HasLogWithField("WARN", "HTTP request", "path", "/bad"))
	assert.True(t, log.HasLogWithField("ERROR", "HTTP request", "path", "/error"))
}

func TestRequestLog_SkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logger.NewTestCtxLogger()

	cfg := DefaultRequestLogConfig()
	cfg.SkipPaths = []string{"/health", "/metrics"}

	router := gin.New()
	router.Use(RequestLogWithConfig(log, cfg))
	router.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/api", func(c *gin.Context) { c.JSON(200, gin.H{"data": "test"}) })

	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, 200, w1.Code)

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, httptest.NewRequest("GET", "/api", nil))
	assert.Equal(t, 200, w2.Code)

	assert.Equal(t, 1, log.CountLogs("INFO"))
	assert.False(t, log.HasLogWithField("INFO", "HTTP request", "path", "/health"))
}

func TestRequestLog_WithTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TraceID(DefaultTraceConfig()))
	router.Use(RequestLog(nil))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceID(c)
		assert.NotEmpty(t, traceID, "TraceID 应存在")
		c.JSON(200, gin.H{"trace_id": traceID})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"), "Response 应包含 TraceID")
}
