package config

import (
	"github.com/spf13/pflag"
)

// Default source locations and priorities
const (
	DefaultConfigFile = "config/monitor.json"
	DefaultDotenvFile = ".env.monitor"
	DefaultEnvPrefix  = "MONITOR"

	PriorityFile   = 10
	PriorityDotenv = 40
	PriorityEnv    = 50
	PriorityFlags  = 100
)

// LoaderBuilder configuration loader builder
type LoaderBuilder struct {
	configFile   string
	dotenvFile   string
	envPrefix    string
	envBindings  map[string]string
	flags        *pflag.FlagSet
	flagBindings map[string]string
}

// NewLoaderBuilder creates a builder with the monitor's default locations
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{
		configFile:  DefaultConfigFile,
		dotenvFile:  DefaultDotenvFile,
		envPrefix:   DefaultEnvPrefix,
		envBindings: EnvBindings,
	}
}

// WithConfigFile json or yaml file; "" disables the file source
func (b *LoaderBuilder) WithConfigFile(path string) *LoaderBuilder {
	b.configFile = path
	return b
}

// WithDotenvFile dotenv file; "" disables the dotenv source
func (b *LoaderBuilder) WithDotenvFile(path string) *LoaderBuilder {
	b.dotenvFile = path
	return b
}

// WithEnvPrefix environment variable prefix; "" disables the env source
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithEnvBindings config key to variable name (without prefix)
func (b *LoaderBuilder) WithEnvBindings(bindings map[string]string) *LoaderBuilder {
	b.envBindings = bindings
	return b
}

// WithFlags command line flags; bindings map flag name to config key
func (b *LoaderBuilder) WithFlags(flags *pflag.FlagSet, bindings map[string]string) *LoaderBuilder {
	b.flags = flags
	b.flagBindings = bindings
	return b
}

// Build loader
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if b.configFile != "" {
		loader.AddSource(NewFileSource(b.configFile, PriorityFile))
	}
	if b.dotenvFile != "" {
		loader.AddSource(NewDotenvSource(b.dotenvFile, b.envPrefix, b.envBindings, PriorityDotenv))
	}
	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, b.envBindings, PriorityEnv))
	}
	if b.flags != nil {
		loader.AddSource(NewFlagSource(b.flags, b.flagBindings, PriorityFlags))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}
