package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDKeyDefault key under which the trace id is stored in both contexts
	TraceIDKeyDefault = "trace_id"

	// TraceIDHeaderDefault request/response header carrying the trace id
	TraceIDHeaderDefault = "X-Trace-ID"
)

// TraceConfig trace id middleware configuration
type TraceConfig struct {
	TraceIDKey           string `mapstructure:"trace_id_key"`
	TraceIDHeader        string `mapstructure:"trace_id_header"`
	EnableResponseHeader bool   `mapstructure:"enable_response_header"`

	// Generator defaults to uuid v4
	Generator func() string `mapstructure:"-"`
}

// DefaultTraceConfig trace_id / X-Trace-ID, echoed in the response
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		TraceIDKey:           TraceIDKeyDefault,
		TraceIDHeader:        TraceIDHeaderDefault,
		EnableResponseHeader: true,
		Generator:            uuid.NewString,
	}
}

// TraceID takes the trace id from an active OTel span, else from the request
// header, else generates one. The id is stored in gin.Context and in the
// request context so that logger.Logger picks it up.
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.TraceIDKey == "" {
		cfg.TraceIDKey = TraceIDKeyDefault
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = TraceIDHeaderDefault
	}
	if cfg.Generator == nil {
		cfg.Generator = uuid.NewString
	}

	return func(c *gin.Context) {
		var traceID string
		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = c.GetHeader(cfg.TraceIDHeader)
			if traceID == "" {
				traceID = cfg.Generator()
			}
			//nolint:staticcheck // string key shared with logger.ManagerConfig.TraceIDKey
			ctx := context.WithValue(c.Request.Context(), cfg.TraceIDKey, traceID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Set(cfg.TraceIDKey, traceID)
		if cfg.EnableResponseHeader {
			c.Writer.Header().Set(cfg.TraceIDHeader, traceID)
		}

		c.Next()
	}
}

// GetTraceID trace id under the default key
func GetTraceID(c *gin.Context) string {
	return GetTraceIDWithKey(c, TraceIDKeyDefault)
}

// GetTraceIDWithKey trace id under key, "" when absent
func GetTraceIDWithKey(c *gin.Context, key string) string {
	id, _ := c.Get(key)
	s, _ := id.(string)
	return s
}
