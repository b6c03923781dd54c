package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFileManager(t *testing.T, level string) *Manager {
	t.Helper()
	return NewManager(ManagerConfig{
		BaseLogDir:    t.TempDir(),
		Level:         level,
		EnableConsole: false,
		EnableFile:    true,
		MaxSize:       10,
		EnableTraceID: true,
	})
}

func TestManager_CombinedAndErrorFiles(t *testing.T) {
	mgr := newFileManager(t, "info")
	log := mgr.GetLogger("monitor")

	log.Info("Monitor started", zap.Int("port", 3001))
	log.Warn("Target unreachable")
	log.Error("Webhook delivery failed")
	log.Debug("filtered out")
	mgr.CloseAll()

	combined, err := os.ReadFile(mgr.Config().CombinedLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(combined), `"message":"Monitor started"`)
	assert.Contains(t, string(combined), `"message":"Target unreachable"`)
	assert.Contains(t, string(combined), `"message":"Webhook delivery failed"`)
	assert.NotContains(t, string(combined), "filtered out")
	assert.Contains(t, string(combined), `"module":"monitor"`)
	assert.Contains(t, string(combined), `"timestamp"`)

	errorLog, err := os.ReadFile(mgr.Config().ErrorLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(errorLog), "Webhook delivery failed")
	assert.NotContains(t, string(errorLog), "Monitor started")
}

func TestManager_GetLoggerIsCached(t *testing.T) {
	mgr := newFileManager(t, "info")
	defer mgr.CloseAll()

	assert.Same(t, mgr.GetLogger("alert"), mgr.GetLogger("alert"))
	assert.NotSame(t, mgr.GetLogger("alert"), mgr.GetLogger("health"))
	assert.Equal(t, "health", mgr.GetLogger("health").Module())
}

func TestManager_TraceIDFromContext(t *testing.T) {
	mgr := newFileManager(t, "debug")
	log := mgr.GetLogger("api")

	ctx := context.WithValue(context.Background(), "trace_id", "trace-abc")
	log.InfoCtx(ctx, "request handled")
	mgr.CloseAll()

	content, err := os.ReadFile(mgr.Config().CombinedLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(content), `"trace_id":"trace-abc"`)
}

func TestManager_NoOutputs(t *testing.T) {
	dir := t.TempDir()
	mgr := NewManager(ManagerConfig{BaseLogDir: dir})
	mgr.GetLogger("quiet").Info("nothing written")
	mgr.CloseAll()

	_, err := os.Stat(filepath.Join(dir, "combined.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewNopLogger(t *testing.T) {
	log := NewNopLogger()
	assert.NotPanics(t, func() {
		log.InfoCtx(context.Background(), "ignored")
		log.ErrorCtx(context.Background(), "ignored")
	})
}
