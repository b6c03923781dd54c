package di

import (
	"context"
	"errors"
	"sync"

	"github.com/KOMKZ/go-yogan-monitor/config"
	"github.com/KOMKZ/go-yogan-monitor/dashboard"
	"github.com/KOMKZ/go-yogan-monitor/database"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/kafka"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/KOMKZ/go-yogan-monitor/monitor"
	"github.com/KOMKZ/go-yogan-monitor/redis"
	"github.com/samber/do/v2"
)

// Container 注入器 + 有序关闭
// 组件懒加载；Shutdown 只关闭已经创建过的组件
type Container struct {
	injector *do.RootScope

	mu        sync.Mutex
	monitor   *monitor.Service
	dashboard *dashboard.Server
}

// NewContainer 注册全部 Provider
func NewContainer(cfg *config.MonitorConfig) *Container {
	injector := do.New()
	RegisterProviders(injector, cfg)
	return &Container{injector: injector}
}

// Injector 底层注入器
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Logger 模块 logger
func (c *Container) Logger(module string) logger.Logger {
	return moduleLogger(c.injector, module)
}

// Monitor 创建（或复用）Monitor Service
func (c *Container) Monitor() (*monitor.Service, error) {
	svc, err := do.Invoke[*monitor.Service](c.injector)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.monitor = svc
	c.mu.Unlock()
	return svc, nil
}

// Dashboard 创建（或复用）Dashboard Server
func (c *Container) Dashboard() (*dashboard.Server, error) {
	srv, err := do.Invoke[*dashboard.Server](c.injector)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.dashboard = srv
	c.mu.Unlock()
	return srv, nil
}

// Shutdown 先停服务，再关闭基础设施，最后刷新日志
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	svc, dash := c.monitor, c.dashboard
	c.monitor, c.dashboard = nil, nil
	c.mu.Unlock()

	log := c.Logger("di")
	var errs []error

	if dash != nil {
		errs = append(errs, dash.Stop(ctx))
	}
	if svc != nil {
		errs = append(errs, svc.Stop(ctx))

		// monitor 创建时已构建下列依赖
		if engine, err := do.Invoke[*health.Engine](c.injector); err == nil {
			engine.Close()
		}
		if pub, err := do.Invoke[*kafka.Publisher](c.injector); err == nil && pub != nil {
			logClose(ctx, log, "kafka", pub.Close())
		}
		if mgr, err := do.Invoke[*redis.Manager](c.injector); err == nil && mgr != nil {
			logClose(ctx, log, "redis", mgr.Close())
		}
		if mgr, err := do.Invoke[*database.Manager](c.injector); err == nil && mgr != nil {
			logClose(ctx, log, "database", mgr.Close())
		}
	}

	logMgr, logErr := do.Invoke[*logger.Manager](c.injector)
	if shutdownErrs := c.injector.Shutdown(); shutdownErrs != nil {
		log.WarnCtx(ctx, "Injector shutdown reported errors")
	}
	if logErr == nil {
		logMgr.CloseAll()
	}
	return errors.Join(errs...)
}
