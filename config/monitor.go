package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/checks"
	"github.com/KOMKZ/go-yogan-monitor/dashboard"
	"github.com/KOMKZ/go-yogan-monitor/database"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/kafka"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/KOMKZ/go-yogan-monitor/monitor"
	"github.com/KOMKZ/go-yogan-monitor/redis"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// EnvBindings config keys settable from MONITOR_* variables and .env.monitor
var EnvBindings = map[string]string{
	"backend.url":              "BACKEND_URL",
	"backend.key":              "BACKEND_KEY",
	"checks.target_url":        "TARGET_URL",
	"alert.webhook.url":        "WEBHOOK_URL",
	"alert.cooldown":           "ALERT_COOLDOWN",
	"monitor.server.host":      "HOST",
	"monitor.server.port":      "PORT",
	"monitor.ws_port":          "WS_PORT",
	"monitor.check_interval":   "CHECK_INTERVAL",
	"monitor.metrics_interval": "METRICS_INTERVAL",
	"monitor.require_backend":  "REQUIRE_BACKEND",
	"dashboard.server.port":    "DASHBOARD_PORT",
	"dashboard.monitor_url":    "URL",
	"logger.level":             "LOG_LEVEL",
	"kafka.enabled":            "KAFKA_ENABLED",
	"kafka.brokers":            "KAFKA_BROKERS",
	"kafka.topic":              "KAFKA_TOPIC",
}

// AlertConfig alert history and delivery
type AlertConfig struct {
	StoreSize int                 `mapstructure:"store_size"`
	Cooldown  time.Duration       `mapstructure:"cooldown"` // 0 re-alerts every cycle
	Webhook   alert.WebhookConfig `mapstructure:"webhook"`
}

// MonitorConfig the whole process configuration
type MonitorConfig struct {
	Logger    logger.ManagerConfig       `mapstructure:"logger"`
	Health    health.Config              `mapstructure:"health"`
	Checks    checks.Config              `mapstructure:"checks"`
	Backend   monitor.BackendConfig      `mapstructure:"backend"`
	Alert     AlertConfig                `mapstructure:"alert"`
	Kafka     kafka.Config               `mapstructure:"kafka"`
	Redis     map[string]redis.Config    `mapstructure:"redis"`
	Database  map[string]database.Config `mapstructure:"database"`
	Monitor   monitor.Config             `mapstructure:"monitor"`
	Dashboard dashboard.Config           `mapstructure:"dashboard"`
}

// Default configuration before any source is applied
func Default() MonitorConfig {
	mon := monitor.DefaultConfig()
	// follow the logger directory unless set explicitly
	mon.DataDir = ""
	mon.LogFile = ""

	return MonitorConfig{
		Logger:    logger.DefaultManagerConfig(),
		Health:    health.DefaultConfig(),
		Checks:    checks.DefaultConfig(),
		Backend:   monitor.DefaultBackendConfig(),
		Alert:     AlertConfig{StoreSize: 1000, Webhook: alert.WebhookConfig{Timeout: 10 * time.Second}},
		Kafka:     kafka.DefaultConfig(),
		Monitor:   mon,
		Dashboard: dashboard.DefaultConfig(),
	}
}

// ApplyDefaults fills zero values and derives shared settings
func (c *MonitorConfig) ApplyDefaults() {
	c.Logger.ApplyDefaults()
	c.Health.ApplyDefaults()
	c.Checks.ApplyDefaults()
	c.Backend.ApplyDefaults()

	if c.Checks.BackendURL == "" {
		c.Checks.BackendURL = c.Backend.URL
	}
	if c.Checks.BackendKey == "" {
		c.Checks.BackendKey = c.Backend.Key
	}
	if c.Alert.StoreSize <= 0 {
		c.Alert.StoreSize = 1000
	}

	if c.Monitor.DataDir == "" {
		c.Monitor.DataDir = c.Logger.BaseLogDir
	}
	if c.Monitor.LogFile == "" {
		c.Monitor.LogFile = c.Logger.CombinedLogPath()
	}
	c.Monitor.ApplyDefaults()
	c.Dashboard.ApplyDefaults()

	for name, rc := range c.Redis {
		rc.ApplyDefaults()
		c.Redis[name] = rc
	}
	for name, dc := range c.Database {
		dc.ApplyDefaults()
		c.Database[name] = dc
	}
}

// Validate every section; the first failure is returned with its section name
func (c MonitorConfig) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"logger", c.Logger},
		{"health", c.Health},
		{"checks", c.Checks},
		{"backend", c.Backend},
		{"alert", c.Alert},
		{"kafka", c.Kafka},
		{"monitor", c.Monitor},
		{"dashboard", c.Dashboard},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	for _, name := range sortedKeys(c.Redis) {
		rc := c.Redis[name]
		if err := rc.Validate(); err != nil {
			return fmt.Errorf("redis.%s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(c.Database) {
		dc := c.Database[name]
		if err := dc.Validate(); err != nil {
			return fmt.Errorf("database.%s: %w", name, err)
		}
	}
	return nil
}

// Validate alert settings
func (c AlertConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.StoreSize, validation.Min(1)),
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
	)
}

// Load merges every source over Default, applies defaults and validates.
// A nil builder reads the default locations.
func Load(b *LoaderBuilder) (*MonitorConfig, *Loader, error) {
	if b == nil {
		b = NewLoaderBuilder()
	}
	loader, err := b.Build()
	if err != nil {
		return nil, nil, err
	}

	cfg := Default()
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("decode configuration: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, loader, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
