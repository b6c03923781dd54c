package config

import (
	"fmt"

	"github.com/samber/do/v2"
)

// ProvideMonitorConfig 创建 MonitorConfig Provider
// Config 是最底层组件，无任何依赖
//
// 使用示例：
//
//	do.Provide(injector, config.ProvideMonitorConfig(config.NewLoaderBuilder().
//	    WithConfigFile("config/monitor.json")))
//	cfg := do.MustInvoke[*config.MonitorConfig](injector)
func ProvideMonitorConfig(b *LoaderBuilder) func(do.Injector) (*MonitorConfig, error) {
	return func(i do.Injector) (*MonitorConfig, error) {
		cfg, _, err := Load(b)
		if err != nil {
			return nil, fmt.Errorf("config load failed: %w", err)
		}
		return cfg, nil
	}
}

// ProvideMonitorConfigValue 直接注册已加载的配置（用于测试或 CLI 已解析的场景）
func ProvideMonitorConfigValue(cfg *MonitorConfig) func(do.Injector) (*MonitorConfig, error) {
	return func(i do.Injector) (*MonitorConfig, error) {
		return cfg, nil
	}
}
