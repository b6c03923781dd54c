package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestCtxLogger records log calls in memory for assertions in unit tests
//
//	testLogger := logger.NewTestCtxLogger()
//	engine := health.NewEngine(cfg, testLogger)
//	engine.RunAllChecks(ctx)
//	assert.True(t, testLogger.HasLog("WARN", "Health check failed"))
type TestCtxLogger struct {
	store *logStore
}

// LogEntry a recorded log call
type LogEntry struct {
	Level   string
	Message string
	TraceID string
	Fields  map[string]interface{}
}

type logStore struct {
	mu   sync.RWMutex
	logs []LogEntry
}

var _ Logger = (*TestCtxLogger)(nil)

// NewTestCtxLogger creates an in-memory logger
func NewTestCtxLogger() *TestCtxLogger {
	return &TestCtxLogger{store: &logStore{logs: make([]LogEntry, 0)}}
}

func (t *TestCtxLogger) record(ctx context.Context, level, msg string, fields []zap.Field) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.store.logs = append(t.store.logs, LogEntry{
		Level:   level,
		Message: msg,
		TraceID: extractTraceIDFromContext(ctx, nil),
		Fields:  extractFieldsMap(fields),
	})
}

// InfoCtx records an INFO entry
func (t *TestCtxLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "INFO", msg, fields)
}

// ErrorCtx records an ERROR entry
func (t *TestCtxLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "ERROR", msg, fields)
}

// DebugCtx records a DEBUG entry
func (t *TestCtxLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "DEBUG", msg, fields)
}

// WarnCtx records a WARN entry
func (t *TestCtxLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	t.record(ctx, "WARN", msg, fields)
}

// With returns a logger sharing the same storage. Preset fields are ignored.
func (t *TestCtxLogger) With(fields ...zap.Field) *TestCtxLogger {
	return &TestCtxLogger{store: t.store}
}

// ============================================
// Assertion helpers
// ============================================

// HasLog reports whether an entry with level and message exists
func (t *TestCtxLogger) HasLog(level, message string) bool {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	for _, log := range t.store.logs {
		if log.Level == level && log.Message == message {
			return true
		}
	}
	return false
}

// HasLogWithField reports whether an entry with level, message and field value exists
func (t *TestCtxLogger) HasLogWithField(level, message, fieldKey string, fieldValue interface{}) bool {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	for _, log := range t.store.logs {
		if log.Level == level && log.Message == message {
			if val, exists := log.Fields[fieldKey]; exists && val == fieldValue {
				return true
			}
		}
	}
	return false
}

// CountLogs number of entries at level
func (t *TestCtxLogger) CountLogs(level string) int {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	count := 0
	for _, log := range t.store.logs {
		if log.Level == level {
			count++
		}
	}
	return count
}

// Logs copy of all entries
func (t *TestCtxLogger) Logs() []LogEntry {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	logs := make([]LogEntry, len(t.store.logs))
	copy(logs, t.store.logs)
	return logs
}

// Clear drops all entries
func (t *TestCtxLogger) Clear() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.store.logs = make([]LogEntry, 0)
}

// extractFieldsMap encodes zap fields into a map for assertions
func extractFieldsMap(fields []zap.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}

	result := make(map[string]interface{}, len(enc.Fields))
	for k, v := range enc.Fields {
		result[k] = v
	}
	return result
}
