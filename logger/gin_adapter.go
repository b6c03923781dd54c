package logger

import (
	"context"
	"strings"
)

// GinLogWriter adapts Gin's text output (io.Writer) to a structured Logger
type GinLogWriter struct {
	log Logger
}

// NewGinLogWriter creates the adapter
//
//	gin.DefaultWriter = logger.NewGinLogWriter(mgr.GetLogger("gin"))
func NewGinLogWriter(log Logger) *GinLogWriter {
	return &GinLogWriter{log: log}
}

// Write implements io.Writer
func (w *GinLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	ctx := context.Background()
	switch {
	case strings.Contains(msg, "[GIN-debug]"):
		// Route registration
		w.log.DebugCtx(ctx, msg)
	case strings.Contains(msg, "[Recovery]") || strings.Contains(msg, "panic recovered"):
		w.log.ErrorCtx(ctx, msg)
	case strings.Contains(msg, "[WARNING]"):
		w.log.WarnCtx(ctx, msg)
	default:
		w.log.InfoCtx(ctx, msg)
	}

	return len(p), nil
}
