package cli

import (
	"fmt"

	"github.com/KOMKZ/go-yogan-monitor/application"
	"github.com/KOMKZ/go-yogan-monitor/di"
	"github.com/KOMKZ/go-yogan-monitor/flagx"
	"github.com/spf13/cobra"
)

type dashboardOptions struct {
	Port       int    `flag:"port,p" usage:"dashboard port" config:"dashboard.server.port"`
	MonitorURL string `flag:"monitor-url,m" usage:"monitor API URL" config:"dashboard.monitor_url"`
	Config     string `flag:"config,c" usage:"configuration file" default:"config/monitor.json"`
}

func newDashboardCommand() *cobra.Command {
	var opts dashboardOptions
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the monitoring dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &opts); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts.Config, &opts)
			if err != nil {
				return err
			}

			container := di.NewContainer(cfg)
			srv, err := container.Dashboard()
			if err == nil {
				err = srv.Start()
			}
			if err != nil {
				_ = shutdown(container, cfg.Monitor.ShutdownTimeout)
				return fmt.Errorf("start dashboard: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard running at http://%s (monitor %s)\n",
				srv.Addr(), cfg.Dashboard.MonitorURL)

			application.WaitShutdown(cmd.Context(), container.Logger("cli"))
			return shutdown(container, cfg.Monitor.ShutdownTimeout)
		},
	}
	return bind(cmd, &opts)
}
