// Package redis holds the Redis caches the monitor probes.
package redis

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Modes
const (
	ModeStandalone = "standalone"
	ModeCluster    = "cluster"
)

// Config one probed Redis instance or cluster
type Config struct {
	Mode string `mapstructure:"mode"`

	// Addrs standalone uses the first address, cluster uses all.
	// Addr is a single address shorthand.
	Addrs []string `mapstructure:"addrs"`
	Addr  string   `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"` // standalone only

	// PoolSize the monitor only pings, two connections are plenty
	PoolSize int `mapstructure:"pool_size"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ApplyDefaults standalone, pool 2, 3s timeouts
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStandalone
	}
	if len(c.Addrs) == 0 && c.Addr != "" {
		c.Addrs = []string{c.Addr}
	}
	if c.PoolSize == 0 {
		c.PoolSize = 2
	}
	for _, d := range []*time.Duration{&c.DialTimeout, &c.ReadTimeout, &c.WriteTimeout} {
		if *d == 0 {
			*d = 3 * time.Second
		}
	}
}

// Validate configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Mode, validation.Required, validation.In(ModeStandalone, ModeCluster)),
		validation.Field(&c.Addrs, validation.Required),
		validation.Field(&c.DB, validation.Min(0), validation.Max(15)),
		validation.Field(&c.PoolSize, validation.Min(0)),
	)
}
