package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrInstanceNotFound unknown instance name
var ErrInstanceNotFound = errors.New("redis instance not found")

// Manager named Redis clients. Clients connect lazily so an unreachable
// cache shows up as a failing check rather than a startup error.
type Manager struct {
	clients map[string]redis.UniversalClient
	configs map[string]Config
	logger  logger.Logger
	mu      sync.RWMutex
}

// NewManager creates a client per configured instance
func NewManager(configs map[string]Config, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	m := &Manager{
		clients: make(map[string]redis.UniversalClient),
		configs: make(map[string]Config),
		logger:  log,
	}

	ctx := context.Background()
	for name, cfg := range configs {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			m.Close()
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}

		m.clients[name] = newClient(cfg)
		m.configs[name] = cfg

		m.logger.DebugCtx(ctx, "Redis client created",
			zap.String("name", name),
			zap.String("mode", cfg.Mode),
			zap.Strings("addrs", cfg.Addrs))
	}

	return m, nil
}

func newClient(cfg Config) redis.UniversalClient {
	if cfg.Mode == "cluster" {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addrs,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addrs[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Client returns the named client or nil
func (m *Manager) Client(name string) redis.UniversalClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[name]
}

// Names sorted instance names
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ping pings the named instance
func (m *Manager) Ping(ctx context.Context, name string) error {
	client := m.Client(name)
	if client == nil {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, name)
	}
	return client.Ping(ctx).Err()
}

// Close closes every client
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, client := range m.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	m.clients = make(map[string]redis.UniversalClient)
	return errors.Join(errs...)
}
