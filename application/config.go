package application

import (
	"fmt"

	"github.com/KOMKZ/go-yogan-monitor/middleware"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`          // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`  // 秒
	WriteTimeout int    `mapstructure:"write_timeout"` // 秒
}

// Addr host:port
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ApplyDefaults release 模式，读写超时 30s
func (c *ServerConfig) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30
	}
}

// Validate 端口 0 表示随机端口（测试用）
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.Mode, validation.In(gin.DebugMode, gin.ReleaseMode, gin.TestMode)),
		validation.Field(&c.ReadTimeout, validation.Min(0)),
		validation.Field(&c.WriteTimeout, validation.Min(0)),
	)
}

// MiddlewareConfig 中间件开关；Recovery 始终启用
type MiddlewareConfig struct {
	CORS       CORSConfig       `mapstructure:"cors"`
	TraceID    TraceIDConfig    `mapstructure:"trace_id"`
	RequestLog RequestLogConfig `mapstructure:"request_log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// CORSConfig 跨域
type CORSConfig struct {
	Enable                bool `mapstructure:"enable"`
	middleware.CORSConfig `mapstructure:",squash"`
}

// TraceIDConfig Trace ID
type TraceIDConfig struct {
	Enable                 bool `mapstructure:"enable"`
	middleware.TraceConfig `mapstructure:",squash"`
}

// RequestLogConfig 请求日志
type RequestLogConfig struct {
	Enable                      bool `mapstructure:"enable"`
	middleware.RequestLogConfig `mapstructure:",squash"`
}

// MetricsConfig HTTP 指标
type MetricsConfig struct {
	Enable bool `mapstructure:"enable"`
}

// DefaultMiddlewareConfig 全部启用
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		CORS:       CORSConfig{Enable: true, CORSConfig: middleware.DefaultCORSConfig()},
		TraceID:    TraceIDConfig{Enable: true, TraceConfig: middleware.DefaultTraceConfig()},
		RequestLog: RequestLogConfig{Enable: true, RequestLogConfig: middleware.DefaultRequestLogConfig()},
		Metrics:    MetricsConfig{Enable: true},
	}
}
