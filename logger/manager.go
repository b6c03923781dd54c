package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager owns the shared cores and hands out one CtxZapLogger per module.
// Construct it once in the process entry point and pass it down.
type Manager struct {
	config  ManagerConfig
	base    *zap.Logger
	writers []*lumberjack.Logger
	loggers map[string]*CtxZapLogger
	mu      sync.RWMutex
}

// NewManager creates a Manager. Zero-valued fields are filled with defaults.
func NewManager(cfg ManagerConfig) *Manager {
	cfg.ApplyDefaults()
	m := &Manager{
		config:  cfg,
		loggers: make(map[string]*CtxZapLogger),
	}
	m.base = m.build()
	return m
}

// Config returns the effective configuration
func (m *Manager) Config() ManagerConfig {
	return m.config
}

// GetLogger returns the logger for a module (thread-safe, created on demand).
// Every line it writes carries a "module" field.
func (m *Manager) GetLogger(module string) *CtxZapLogger {
	m.mu.RLock()
	if l, ok := m.loggers[module]; ok {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double check
	if l, ok := m.loggers[module]; ok {
		return l
	}

	l := &CtxZapLogger{
		base:   m.base.With(zap.String("module", module)).WithOptions(zap.AddCallerSkip(1)),
		module: module,
		config: &m.config,
	}
	m.loggers[module] = l
	return l
}

// build creates the tee of console, combined and error cores
func (m *Manager) build() *zap.Logger {
	cfg := m.config
	level := ParseLevel(cfg.Level)
	var cores []zapcore.Core

	if cfg.EnableConsole {
		consoleEncoder := newEncoder(cfg.Encoding)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}

	if cfg.EnableFile {
		fileEncoder := newEncoder("json")

		combined := newFileWriter(cfg.CombinedLogPath(), cfg)
		m.writers = append(m.writers, combined)
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(combined), level))

		errorWriter := newFileWriter(cfg.ErrorLogPath(), cfg)
		m.writers = append(m.writers, errorWriter)
		cores = append(cores, zapcore.NewCore(
			fileEncoder,
			zapcore.AddSync(errorWriter),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			}),
		))
	}

	if len(cores) == 0 {
		return zap.NewNop()
	}

	opts := []zap.Option{}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...)
}

// Sync flushes buffered entries
func (m *Manager) Sync() {
	_ = m.base.Sync()
}

// CloseAll flushes and closes file handles. Call once on exit.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.base.Sync()
	for _, w := range m.writers {
		_ = w.Close()
	}
	m.writers = nil
}

// newEncoder builds the line encoder. Keys match what the log tail reader expects.
func newEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// newFileWriter creates a rotating file writer
func newFileWriter(filename string, cfg ManagerConfig) *lumberjack.Logger {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)

	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}
