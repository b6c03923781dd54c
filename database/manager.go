package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrInstanceNotFound unknown database name
var ErrInstanceNotFound = errors.New("database instance not found")

// Manager named database handles (supports multiple instances)
type Manager struct {
	instances map[string]*gorm.DB
	configs   map[string]Config
	logger    logger.Logger
	mu        sync.RWMutex
}

// NewManager opens every configured database without connecting;
// connectivity is checked by Ping.
func NewManager(configs map[string]Config, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	m := &Manager{
		instances: make(map[string]*gorm.DB),
		configs:   make(map[string]Config),
		logger:    log,
	}

	for name, cfg := range configs {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			m.Close()
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}

		db, err := openDB(cfg)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to open database %s: %w", name, err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		m.instances[name] = db
		m.configs[name] = cfg

		m.logger.DebugCtx(context.Background(), "Database handle opened",
			zap.String("name", name),
			zap.String("driver", cfg.Driver))
	}

	return m, nil
}

// openDB selects the dialector and opens gorm silently
func openDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		// skip the version query so opening stays offline
		dialector = mysql.New(mysql.Config{DSN: cfg.DSN, SkipInitializeWithVersion: true})
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		DisableAutomaticPing: true,
	})
}

// DB named instance or nil
func (m *Manager) DB(name string) *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[name]
}

// Names sorted instance names
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.instances))
	for name := range m.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ping pings the named database
func (m *Manager) Ping(ctx context.Context, name string) error {
	db := m.DB(name)
	if db == nil {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, name)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB for %s: %w", name, err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes all connections
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, db := range m.instances {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, fmt.Errorf("get sql.DB for %s: %w", name, err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	m.instances = make(map[string]*gorm.DB)
	return errors.Join(errs...)
}
