package health

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config engine configuration
type Config struct {
	Timeout           time.Duration `mapstructure:"timeout"`            // per-check timeout
	AlertThreshold    int           `mapstructure:"alert_threshold"`    // consecutive failures for a warning
	CriticalThreshold int           `mapstructure:"critical_threshold"` // consecutive failures for a critical alert
	HistorySize       int           `mapstructure:"history_size"`       // reports kept in memory
	PoolSize          int           `mapstructure:"pool_size"`          // concurrent checks
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		AlertThreshold:    3,
		CriticalThreshold: 5,
		HistorySize:       100,
		PoolSize:          16,
	}
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = d.AlertThreshold
	}
	if c.CriticalThreshold <= 0 {
		c.CriticalThreshold = d.CriticalThreshold
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
}

// Validate configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.AlertThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.CriticalThreshold, validation.Required, validation.Min(c.AlertThreshold)),
		validation.Field(&c.HistorySize, validation.Min(0)),
		validation.Field(&c.PoolSize, validation.Min(0)),
	)
}
