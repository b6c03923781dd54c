package di

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/checks"
	"github.com/KOMKZ/go-yogan-monitor/config"
	"github.com/KOMKZ/go-yogan-monitor/dashboard"
	"github.com/KOMKZ/go-yogan-monitor/database"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/kafka"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/KOMKZ/go-yogan-monitor/metrics"
	"github.com/KOMKZ/go-yogan-monitor/monitor"
	"github.com/KOMKZ/go-yogan-monitor/redis"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// ============================================
// Layer 1: Logger（依赖 Config）
// ============================================

// ProvideLoggerManager 按 logger 配置创建 Manager
func ProvideLoggerManager(i do.Injector) (*logger.Manager, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	return logger.NewManager(cfg.Logger), nil
}

// moduleLogger 取模块 logger
func moduleLogger(i do.Injector, module string) logger.Logger {
	mgr, err := do.Invoke[*logger.Manager](i)
	if err != nil {
		return logger.NewNopLogger()
	}
	return mgr.GetLogger(module)
}

// ============================================
// Layer 2: 基础设施（未配置时返回 nil）
// ============================================

// ProvideRedisManager Redis 实例（仅用于健康检查 ping）
func ProvideRedisManager(i do.Injector) (*redis.Manager, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	if len(cfg.Redis) == 0 {
		return nil, nil
	}
	return redis.NewManager(cfg.Redis, moduleLogger(i, "redis"))
}

// ProvideDatabaseManager 数据库实例（仅用于健康检查 ping）
func ProvideDatabaseManager(i do.Injector) (*database.Manager, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	if len(cfg.Database) == 0 {
		return nil, nil
	}
	return database.NewManager(cfg.Database, moduleLogger(i, "database"))
}

// ProvideKafkaPublisher 告警流发布者；未启用时为 nil
func ProvideKafkaPublisher(i do.Injector) (*kafka.Publisher, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	return kafka.NewPublisher(cfg.Kafka, moduleLogger(i, "kafka"))
}

// ============================================
// Layer 3: 监控领域组件
// ============================================

// ProvideAlertManager 告警存储与投递；webhook 与 Kafka 在后台投递
func ProvideAlertManager(i do.Injector) (*alert.Manager, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	log := moduleLogger(i, "alert")

	opts := []alert.Option{alert.WithCooldown(cfg.Alert.Cooldown)}
	if cfg.Alert.Webhook.URL != "" {
		opts = append(opts, alert.WithAsyncSink(alert.NewWebhookSink(cfg.Alert.Webhook)))
	}

	pub, err := do.Invoke[*kafka.Publisher](i)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	if pub != nil {
		opts = append(opts, alert.WithAsyncSink(alert.NewPublisherSink("kafka", pub)))
	}

	return alert.NewManager(alert.NewStore(cfg.Alert.StoreSize), log, opts...), nil
}

// ProvideHealthEngine 注册探针与 Redis/DB ping 检查
func ProvideHealthEngine(i do.Injector) (*health.Engine, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	alerts, err := do.Invoke[*alert.Manager](i)
	if err != nil {
		return nil, err
	}

	engine, err := health.NewEngine(cfg.Health, moduleLogger(i, "health"), health.WithAlerter(alerts))
	if err != nil {
		return nil, err
	}
	checks.NewProber(cfg.Checks).Register(engine)

	redisMgr, err := do.Invoke[*redis.Manager](i)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	if redisMgr != nil {
		checks.RegisterPingers(engine, "redis", redisMgr, cfg.Checks.SlowThreshold)
	}

	dbMgr, err := do.Invoke[*database.Manager](i)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	if dbMgr != nil {
		checks.RegisterPingers(engine, "database", dbMgr, cfg.Checks.SlowThreshold)
	}

	return engine, nil
}

// ProvideMetricsStore 滚动指标
func ProvideMetricsStore(i do.Injector) (*metrics.Store, error) {
	return metrics.NewStore(), nil
}

// ProvideExporter Prometheus 导出
func ProvideExporter(i do.Injector) (*metrics.Exporter, error) {
	return metrics.NewExporter(), nil
}

// ProvideMonitor Monitor Service
func ProvideMonitor(i do.Injector) (*monitor.Service, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	engine, err := do.Invoke[*health.Engine](i)
	if err != nil {
		return nil, err
	}
	alerts, err := do.Invoke[*alert.Manager](i)
	if err != nil {
		return nil, err
	}
	store, err := do.Invoke[*metrics.Store](i)
	if err != nil {
		return nil, err
	}
	exporter, err := do.Invoke[*metrics.Exporter](i)
	if err != nil {
		return nil, err
	}

	var backend *monitor.Backend
	if cfg.Backend.URL != "" {
		backend = monitor.NewBackend(cfg.Backend)
	}
	probes := cfg.Checks

	return monitor.New(cfg.Monitor, cfg.Backend, monitor.Deps{
		Engine:   engine,
		Alerts:   alerts,
		Metrics:  store,
		Files:    metrics.NewFileStore(cfg.Monitor.DataDir),
		Exporter: exporter,
		Backend:  backend,
		Reader:   metrics.HostReader{},
		Probes:   &probes,
		Log:      moduleLogger(i, "monitor"),
	})
}

// ProvideDashboard Dashboard Server
func ProvideDashboard(i do.Injector) (*dashboard.Server, error) {
	cfg, err := do.Invoke[*config.MonitorConfig](i)
	if err != nil {
		return nil, err
	}
	return dashboard.New(cfg.Dashboard, moduleLogger(i, "dashboard"))
}

// logClose 关闭失败只记录
func logClose(ctx context.Context, log logger.Logger, name string, err error) {
	if err != nil {
		log.WarnCtx(ctx, "Component close failed", zap.String("component", name), zap.Error(err))
	}
}
