// Package logger provides module-scoped structured logging on top of zap.
//
// Every log line is a JSON object with at least timestamp, level and message.
// File output goes to two rotating files under the base directory:
// combined.log receives every enabled level, error.log receives error and above.
package logger

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// Log levels accepted by ManagerConfig.Level and by log tail filters
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// ManagerConfig global manager configuration (shared by all modules)
type ManagerConfig struct {
	BaseLogDir    string `mapstructure:"base_log_dir"` // Root directory (default logs/)
	Level         string `mapstructure:"level"`
	AppName       string `mapstructure:"app_name"` // Injected into every line, even when empty
	Encoding      string `mapstructure:"encoding"` // json or console (console output only)
	EnableConsole bool   `mapstructure:"enable_console"`
	EnableFile    bool   `mapstructure:"enable_file"`
	CombinedFile  string `mapstructure:"combined_file"`
	ErrorFile     string `mapstructure:"error_file"`
	MaxSize       int    `mapstructure:"max_size"` // MB
	MaxBackups    int    `mapstructure:"max_backups"`
	MaxAge        int    `mapstructure:"max_age"` // days
	Compress      bool   `mapstructure:"compress"`
	EnableCaller  bool   `mapstructure:"enable_caller"`

	// Stack capture for ErrorCtx
	EnableStacktrace bool `mapstructure:"enable_stacktrace"`
	StacktraceDepth  int  `mapstructure:"stacktrace_depth"` // 0 = default (10)

	// Trace ID configuration
	EnableTraceID    bool   `mapstructure:"enable_trace_id"`
	TraceIDKey       string `mapstructure:"trace_id_key"`        // key in context (default "trace_id")
	TraceIDFieldName string `mapstructure:"trace_id_field_name"` // log field name (default "trace_id")
}

// Returns default manager configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		BaseLogDir:       "logs",
		Level:            LevelInfo,
		Encoding:         "json",
		EnableConsole:    true,
		EnableFile:       true,
		CombinedFile:     "combined.log",
		ErrorFile:        "error.log",
		MaxSize:          100,
		MaxBackups:       5,
		MaxAge:           28,
		Compress:         false,
		EnableCaller:     true,
		EnableStacktrace: true,
		StacktraceDepth:  5,
		EnableTraceID:    true,
		TraceIDKey:       "trace_id",
		TraceIDFieldName: "trace_id",
	}
}

// ApplyDefaults fills zero-valued fields with default values (in-place modification)
// Booleans cannot be told apart from "unset" and keep their value.
func (c *ManagerConfig) ApplyDefaults() {
	defaults := DefaultManagerConfig()

	if c.BaseLogDir == "" {
		c.BaseLogDir = defaults.BaseLogDir
	}
	if c.Level == "" {
		c.Level = defaults.Level
	}
	if c.Encoding == "" {
		c.Encoding = defaults.Encoding
	}
	if c.CombinedFile == "" {
		c.CombinedFile = defaults.CombinedFile
	}
	if c.ErrorFile == "" {
		c.ErrorFile = defaults.ErrorFile
	}
	if c.MaxSize == 0 {
		c.MaxSize = defaults.MaxSize
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = defaults.MaxBackups
	}
	if c.MaxAge == 0 {
		c.MaxAge = defaults.MaxAge
	}
	if c.TraceIDKey == "" {
		c.TraceIDKey = defaults.TraceIDKey
	}
	if c.TraceIDFieldName == "" {
		c.TraceIDFieldName = defaults.TraceIDFieldName
	}
}

// Validate ManagerConfig configuration
func (c ManagerConfig) Validate() error {
	validLevels := []string{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal}
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("Invalid log level: %s (valid values: %v)", c.Level, validLevels)
	}

	validEncodings := []string{"json", "console"}
	if !contains(validEncodings, c.Encoding) {
		return fmt.Errorf("Invalid log encoding: %s (valid values: %v)", c.Encoding, validEncodings)
	}

	if c.MaxSize < 1 || c.MaxSize > 10000 {
		return fmt.Errorf("MaxSize must be between 1-10000 MB, current: %d", c.MaxSize)
	}

	if c.MaxBackups < 0 || c.MaxBackups > 1000 {
		return fmt.Errorf("MaxBackups must be between 0-1000, current: %d", c.MaxBackups)
	}

	if c.MaxAge < 0 || c.MaxAge > 3650 {
		return fmt.Errorf("MaxAge must be between 0-3650 days, current: %d", c.MaxAge)
	}

	return nil
}

// CombinedLogPath full path of the combined log
func (c ManagerConfig) CombinedLogPath() string {
	return filepath.Join(c.BaseLogDir, c.CombinedFile)
}

// ErrorLogPath full path of the error log
func (c ManagerConfig) ErrorLogPath() string {
	return filepath.Join(c.BaseLogDir, c.ErrorFile)
}

// ParseLevel parse log level string
func ParseLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// contains Check if the string slice contains the specified string
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
