package monitor

import (
	"path/filepath"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/application"
	"github.com/KOMKZ/go-yogan-monitor/metrics"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config Monitor Service settings
type Config struct {
	Version string `mapstructure:"version"`

	Server     application.ServerConfig     `mapstructure:"server"`
	Middleware application.MiddlewareConfig `mapstructure:"middleware"`
	// WSPort 0 means Server.Port + 1 (random when Server.Port is 0)
	WSPort int `mapstructure:"ws_port"`

	CheckInterval   time.Duration `mapstructure:"check_interval"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	SampleInterval  time.Duration `mapstructure:"sample_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DataDir metrics-<date>.json and daily-summary-<date>.json
	DataDir string `mapstructure:"data_dir"`
	// LogFile JSON-lines log served by /api/logs
	LogFile string `mapstructure:"log_file"`

	// RequireBackend refuse to start without backend URL and key
	RequireBackend bool `mapstructure:"require_backend"`

	Thresholds metrics.Thresholds `mapstructure:"thresholds"`
}

// DefaultConfig API on 3001, WebSocket on 3002
func DefaultConfig() Config {
	return Config{
		Version:         "1.0.0",
		Server:          application.ServerConfig{Port: 3001},
		Middleware:      application.DefaultMiddlewareConfig(),
		CheckInterval:   30 * time.Second,
		MetricsInterval: 5 * time.Minute,
		SampleInterval:  10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DataDir:         "logs",
		LogFile:         filepath.Join("logs", "combined.log"),
		RequireBackend:  true,
		Thresholds:      metrics.DefaultThresholds(),
	}
}

// ApplyDefaults fills zero values; booleans keep their value
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Version == "" {
		c.Version = d.Version
	}
	c.Server.ApplyDefaults()
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = d.MetricsInterval
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = d.SampleInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	if c.Thresholds == (metrics.Thresholds{}) {
		c.Thresholds = d.Thresholds
	}
}

// Validate configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.WSPort, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.CheckInterval, validation.Min(time.Second)),
		validation.Field(&c.MetricsInterval, validation.Min(time.Second)),
		validation.Field(&c.SampleInterval, validation.Min(time.Second)),
	)
}

// WebSocketServer server settings of the push channel
func (c Config) WebSocketServer() application.ServerConfig {
	ws := c.Server
	switch {
	case c.WSPort != 0:
		ws.Port = c.WSPort
	case c.Server.Port != 0:
		ws.Port = c.Server.Port + 1
	}
	return ws
}

// PublicConfig the config subset shown to dashboards
type PublicConfig struct {
	Version           string `json:"version"`
	TargetURL         string `json:"target_url"`
	CheckInterval     string `json:"check_interval"`
	MetricsInterval   string `json:"metrics_interval"`
	AlertThreshold    int    `json:"alert_threshold"`
	CriticalThreshold int    `json:"critical_threshold"`
	WebhookEnabled    bool   `json:"webhook_enabled"`

	// NextRuns next scheduled run per job while the service is running
	NextRuns map[string]time.Time `json:"next_runs,omitempty"`
}
