package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/application"
	"github.com/KOMKZ/go-yogan-monitor/config"
	"github.com/KOMKZ/go-yogan-monitor/di"
	"github.com/KOMKZ/go-yogan-monitor/flagx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type startOptions struct {
	Port     int           `flag:"port,p" usage:"monitor API port, WebSocket listens on port+1" config:"monitor.server.port"`
	URL      string        `flag:"url,u" usage:"target application URL" config:"checks.target_url"`
	Interval time.Duration `flag:"interval,i" usage:"health check interval, e.g. 30s or 1m" config:"monitor.check_interval"`
	Config   string        `flag:"config,c" usage:"configuration file" default:"config/monitor.json"`
}

func newStartCommand() *cobra.Command {
	var opts startOptions
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the monitor service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &opts); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts.Config, &opts)
			if err != nil {
				return err
			}
			return runStart(cmd, cfg)
		},
	}
	return bind(cmd, &opts)
}

func runStart(cmd *cobra.Command, cfg *config.MonitorConfig) error {
	ctx := cmd.Context()
	container := di.NewContainer(cfg)
	log := container.Logger("cli")

	svc, err := container.Monitor()
	if err == nil {
		err = svc.Start(ctx)
	}
	if err != nil {
		_ = shutdown(container, cfg.Monitor.ShutdownTimeout)
		return fmt.Errorf("start monitor: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Monitor running\n  API:       http://%s\n  WebSocket: ws://%s\n  Target:    %s\n",
		svc.APIAddr(), svc.WSAddr(), cfg.Checks.TargetURL)

	application.WaitShutdown(ctx, log)
	log.InfoCtx(context.Background(), "Stopping monitor", zap.Duration("timeout", cfg.Monitor.ShutdownTimeout))
	return shutdown(container, cfg.Monitor.ShutdownTimeout)
}

func shutdown(container *di.Container, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return container.Shutdown(ctx)
}
