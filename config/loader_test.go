package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	name     string
	priority int
	data     map[string]interface{}
}

func (s staticSource) Name() string                          { return s.name }
func (s staticSource) Priority() int                         { return s.priority }
func (s staticSource) Load() (map[string]interface{}, error) { return s.data, nil }

func TestLoader_PriorityOrder(t *testing.T) {
	loader := NewLoader()
	// added out of order on purpose
	loader.AddSource(staticSource{"flags", 100, map[string]interface{}{"monitor.server.port": 9}})
	loader.AddSource(staticSource{"file", 10, map[string]interface{}{
		"monitor.server.port": 1,
		"monitor.server.host": "0.0.0.0",
	}})
	loader.AddSource(staticSource{"env", 50, map[string]interface{}{"monitor.server.port": 5}})

	require.NoError(t, loader.Load())
	assert.Equal(t, 9, loader.v.GetInt("monitor.server.port"))
	assert.True(t, loader.IsSet("monitor.server.host"))
	assert.False(t, loader.IsSet("monitor.ws_port"))

	assert.Equal(t, "flags", loader.Origin("monitor.server.port"))
	assert.Equal(t, "file", loader.Origin("Monitor..Server.Host"))
	assert.Empty(t, loader.Origin("monitor.ws_port"))
}

func TestSplitKey(t *testing.T) {
	assert.Equal(t, []string{"monitor", "server", "port"}, splitKey("monitor.server.port"))
	assert.Equal(t, []string{"a", "b"}, splitKey(".a..b."))
	assert.Empty(t, splitKey(""))
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, loader, err := Load(NewLoaderBuilder().
		WithConfigFile(filepath.Join(dir, "monitor.json")).
		WithDotenvFile(filepath.Join(dir, ".env.monitor")).
		WithEnvPrefix(""))
	require.NoError(t, err)
	assert.Empty(t, loader.GetLoadedFiles())

	assert.Equal(t, 3001, cfg.Monitor.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Monitor.CheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.MetricsInterval)
	assert.Equal(t, "logs", cfg.Monitor.DataDir)
	assert.Equal(t, filepath.Join("logs", "combined.log"), cfg.Monitor.LogFile)
	assert.True(t, cfg.Monitor.RequireBackend)
	assert.Equal(t, 3, cfg.Health.AlertThreshold)
	assert.Equal(t, 5, cfg.Health.CriticalThreshold)
	assert.Equal(t, 1000, cfg.Alert.StoreSize)
	assert.Equal(t, time.Duration(0), cfg.Alert.Cooldown)
	assert.Equal(t, uint64(0), cfg.Alert.Webhook.MaxRetries)
	assert.Equal(t, "http://localhost:3000", cfg.Checks.TargetURL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 8080, cfg.Dashboard.Server.Port)
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "monitor.json", `{
		"monitor": {"server": {"port": 4001}, "check_interval": "15s", "require_backend": false},
		"backend": {"url": "http://file-db:8000", "key": "file-key"},
		"health": {"alert_threshold": 2, "critical_threshold": 4},
		"redis": {"cache": {"addr": "127.0.0.1:6379"}}
	}`)
	dotenv := writeFile(t, dir, ".env.monitor", "BACKEND_URL=http://dotenv-db:8000\nWEBHOOK_URL=https://hooks.example.com/a\n")
	t.Setenv("MONITOR_TEST_BACKEND_URL", "http://env-db:8000")

	fs := pflag.NewFlagSet("start", pflag.ContinueOnError)
	fs.IntP("port", "p", 3001, "")
	require.NoError(t, fs.Parse([]string{"--port", "4500"}))

	cfg, loader, err := Load(NewLoaderBuilder().
		WithConfigFile(file).
		WithDotenvFile(dotenv).
		WithEnvPrefix("MONITOR_TEST").
		WithFlags(fs, map[string]string{"port": "monitor.server.port"}))
	require.NoError(t, err)

	assert.Equal(t, []string{file, dotenv}, loader.GetLoadedFiles())
	assert.Equal(t, 4500, cfg.Monitor.Server.Port, "flag beats file")
	assert.Equal(t, 15*time.Second, cfg.Monitor.CheckInterval)
	assert.False(t, cfg.Monitor.RequireBackend)
	assert.Equal(t, "http://env-db:8000", cfg.Backend.URL, "env beats dotenv and file")
	assert.Equal(t, "file-key", cfg.Backend.Key)
	assert.Equal(t, "http://env-db:8000", cfg.Checks.BackendURL)
	assert.Equal(t, "https://hooks.example.com/a", cfg.Alert.Webhook.URL)
	assert.Equal(t, 2, cfg.Health.AlertThreshold)
	require.Contains(t, cfg.Redis, "cache")
	assert.Equal(t, []string{"127.0.0.1:6379"}, cfg.Redis["cache"].Addrs)
	assert.Equal(t, "standalone", cfg.Redis["cache"].Mode)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "monitor.json", `{"health": {"alert_threshold": 5, "critical_threshold": 2}}`)

	_, _, err := Load(NewLoaderBuilder().
		WithConfigFile(file).
		WithDotenvFile("").
		WithEnvPrefix(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health")
}

func TestMonitorConfig_ValidateSections(t *testing.T) {
	cfg := Default()
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	cfg.Kafka.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}
