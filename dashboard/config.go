package dashboard

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/application"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config Dashboard Server settings
type Config struct {
	Server application.ServerConfig `mapstructure:"server"`
	// MonitorURL base URL of the Monitor Service HTTP API
	MonitorURL string `mapstructure:"monitor_url"`
	// WSURL monitor WebSocket; empty derives ws://<monitor host>:<monitor port + 1>
	WSURL string `mapstructure:"ws_url"`
	// ProxyTimeout per proxied request
	ProxyTimeout time.Duration `mapstructure:"proxy_timeout"`
	// ReconnectDelay browser reconnect delay after the WebSocket drops
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// DefaultConfig dashboard on 8080 watching a monitor on 3001
func DefaultConfig() Config {
	return Config{
		Server:         application.ServerConfig{Port: 8080},
		MonitorURL:     "http://localhost:3001",
		ProxyTimeout:   10 * time.Second,
		ReconnectDelay: 5 * time.Second,
	}
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	c.Server.ApplyDefaults()
	if c.MonitorURL == "" {
		c.MonitorURL = d.MonitorURL
	}
	if c.ProxyTimeout <= 0 {
		c.ProxyTimeout = d.ProxyTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
}

// Validate configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.MonitorURL, validation.Required, is.URL),
		validation.Field(&c.WSURL, is.URL),
	)
}

// WebSocketURL WSURL, or the monitor address with port + 1
func (c Config) WebSocketURL() (string, error) {
	if c.WSURL != "" {
		return c.WSURL, nil
	}

	u, err := url.Parse(c.MonitorURL)
	if err != nil {
		return "", fmt.Errorf("parse monitor url: %w", err)
	}
	scheme := "ws"
	port := 80
	if u.Scheme == "https" {
		scheme = "wss"
		port = 443
	}
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return "", fmt.Errorf("parse monitor port: %w", err)
		}
	}
	return scheme + "://" + net.JoinHostPort(u.Hostname(), strconv.Itoa(port+1)), nil
}
