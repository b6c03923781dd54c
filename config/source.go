package config

// ConfigSource one layer of configuration
// Every source (file, dotenv, environment, flags) implements this interface
type ConfigSource interface {
	// Name for logs and errors
	Name() string

	// Priority higher values override lower ones
	// Used by the monitor:
	// - config file (config/monitor.json): 10
	// - dotenv file (.env.monitor): 40
	// - environment variables: 50
	// - command line flags: 100
	Priority() int

	// Load returns dot-separated keys, e.g. "monitor.server.port"
	Load() (map[string]interface{}, error)
}
