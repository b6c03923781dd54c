package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// TestTestCtxLogger test all methods of TestCtxLogger
func TestTestCtxLogger(t *testing.T) {
	log := NewTestCtxLogger()
	ctx := context.Background()
	ctxWithTrace := context.WithValue(ctx, "trace_id", "test-trace-123")

	log.InfoCtx(ctx, "info message", zap.String("key", "value"))
	log.DebugCtx(ctx, "debug message", zap.Int("count", 10))
	log.WarnCtx(ctx, "warn message")
	log.ErrorCtx(ctxWithTrace, "error message")

	assert.True(t, log.HasLog("INFO", "info message"))
	assert.True(t, log.HasLog("DEBUG", "debug message"))
	assert.True(t, log.HasLog("WARN", "warn message"))
	assert.True(t, log.HasLog("ERROR", "error message"))
	assert.False(t, log.HasLog("INFO", "missing"))

	assert.True(t, log.HasLogWithField("INFO", "info message", "key", "value"))
	assert.True(t, log.HasLogWithField("DEBUG", "debug message", "count", int64(10))) // zap.Int is encoded as int64
	assert.False(t, log.HasLogWithField("INFO", "info message", "key", "other"))

	assert.Equal(t, "test-trace-123", log.Logs()[3].TraceID)
	assert.Equal(t, 1, log.CountLogs("ERROR"))

	log.Clear()
	assert.Empty(t, log.Logs())
}

// TestTestCtxLogger_With shares storage with the parent
func TestTestCtxLogger_With(t *testing.T) {
	log := NewTestCtxLogger()
	child := log.With(zap.String("check", "connectivity"))

	child.InfoCtx(context.Background(), "from child")
	assert.True(t, log.HasLog("INFO", "from child"))
}
