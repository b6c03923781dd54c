package di

import (
	"github.com/KOMKZ/go-yogan-monitor/config"
	"github.com/samber/do/v2"
)

// RegisterProviders registers every provider, lazily, by dependency level
func RegisterProviders(injector *do.RootScope, cfg *config.MonitorConfig) {
	// ═══════════════════════════════════════════════════════════
	// Layer 0: Config (no dependencies)
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, config.ProvideMonitorConfigValue(cfg))

	// ═══════════════════════════════════════════════════════════
	// Layer 1: Logger (depends on Config)
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideLoggerManager)

	// ═══════════════════════════════════════════════════════════
	// Layer 2: Infrastructure, nil when not configured
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideRedisManager)
	do.Provide(injector, ProvideDatabaseManager)
	do.Provide(injector, ProvideKafkaPublisher)

	// ═══════════════════════════════════════════════════════════
	// Layer 3: Monitor components
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideAlertManager)
	do.Provide(injector, ProvideHealthEngine)
	do.Provide(injector, ProvideMetricsStore)
	do.Provide(injector, ProvideExporter)
	do.Provide(injector, ProvideMonitor)
	do.Provide(injector, ProvideDashboard)
}
