// Package database holds the SQL databases the monitor probes directly.
package database

import (
	"errors"
	"time"
)

// ErrInvalidConfig missing DSN or unknown driver
var ErrInvalidConfig = errors.New("invalid database config")

// Config one SQL database
type Config struct {
	Driver          string        `mapstructure:"driver"`            // mysql, postgres, sqlite
	DSN             string        `mapstructure:"dsn"`               // data source name
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // the monitor only pings
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    //
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` //
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = "postgres"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 2
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 1
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
}

// Validate configuration
func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrInvalidConfig
	}
	switch c.Driver {
	case "mysql", "postgres", "sqlite":
		return nil
	default:
		return ErrInvalidConfig
	}
}
