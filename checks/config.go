// Package checks is the probe battery run by the health engine.
package checks

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config probe targets
type Config struct {
	// TargetURL application under watch
	TargetURL string `mapstructure:"target_url"`

	// BackendURL data backend (REST + auth); empty skips backend probes
	BackendURL string `mapstructure:"backend_url"`
	BackendKey string `mapstructure:"backend_key"`

	// AudioPath static audio asset probed with HEAD
	AudioPath string `mapstructure:"audio_path"`

	// FeatureRoutes routes that must answer 2xx
	FeatureRoutes []string `mapstructure:"feature_routes"`

	// RequiredHeaders security headers expected on the root page
	RequiredHeaders []string `mapstructure:"required_headers"`

	// SlowThreshold responses slower than this are degraded
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// DefaultConfig returns the default probe configuration
func DefaultConfig() Config {
	return Config{
		TargetURL:     "http://localhost:3000",
		AudioPath:     "/audio/meditation-bell.mp3",
		FeatureRoutes: []string{"/journal", "/progress", "/library"},
		RequiredHeaders: []string{
			"X-Content-Type-Options",
			"X-Frame-Options",
			"Referrer-Policy",
		},
		SlowThreshold: 2000 * time.Millisecond,
	}
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.TargetURL == "" {
		c.TargetURL = d.TargetURL
	}
	if c.AudioPath == "" {
		c.AudioPath = d.AudioPath
	}
	if c.FeatureRoutes == nil {
		c.FeatureRoutes = d.FeatureRoutes
	}
	if c.RequiredHeaders == nil {
		c.RequiredHeaders = d.RequiredHeaders
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = d.SlowThreshold
	}
}

// Validate configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TargetURL, validation.Required, is.URL),
		validation.Field(&c.BackendURL, is.URL),
		validation.Field(&c.SlowThreshold, validation.Min(time.Millisecond)),
	)
}
