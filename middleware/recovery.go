package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into the API's 500 {"error": ...} body.
// The panic value and stack only reach the log.
func Recovery(log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := []zap.Field{
				zap.String("panic", fmt.Sprint(rec)),
				zap.String("route", c.Request.Method+" "+c.FullPath()),
				zap.String("client_ip", c.ClientIP()),
				zap.ByteString("stack", debug.Stack()),
			}
			if id := GetTraceID(c); id != "" {
				fields = append(fields, zap.String("trace_id", id))
			}
			log.ErrorCtx(c.Request.Context(), "Panic in API handler", fields...)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		}()
		c.Next()
	}
}
