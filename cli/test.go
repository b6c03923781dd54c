package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/KOMKZ/go-yogan-monitor/checks"
	"github.com/KOMKZ/go-yogan-monitor/flagx"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/spf13/cobra"
)

type testOptions struct {
	URL    string `flag:"url,u" usage:"target application URL" config:"checks.target_url"`
	Config string `flag:"config,c" usage:"configuration file" default:"config/monitor.json"`
}

func newTestCommand() *cobra.Command {
	var opts testOptions
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run every health check once and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &opts); err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts.Config, &opts)
			if err != nil {
				return err
			}

			engine, err := health.NewEngine(cfg.Health, logger.NewNopLogger())
			if err != nil {
				return err
			}
			defer engine.Close()
			checks.NewProber(cfg.Checks).Register(engine)

			fmt.Fprintf(cmd.OutOrStdout(), "Testing %s\n\n", cfg.Checks.TargetURL)
			report := engine.RunAllChecks(cmd.Context())
			printReport(cmd.OutOrStdout(), report)

			if report.Status == health.StatusUnhealthy {
				return fmt.Errorf("%d of %d checks failed", report.Summary.Unhealthy, report.Summary.TotalChecks)
			}
			return nil
		},
	}
	return bind(cmd, &opts)
}

func printReport(out io.Writer, r *health.Report) {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tDURATION\tMESSAGE")
	for _, name := range names {
		res := r.Checks[name]
		fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", name, res.Status, res.Duration, res.Message)
	}
	_ = w.Flush()

	s := r.Summary
	fmt.Fprintf(out, "\nOverall: %s (%d healthy, %d degraded, %d unhealthy, success rate %d%%) in %dms\n",
		r.Status, s.Healthy, s.Degraded, s.Unhealthy, s.SuccessRate, r.Duration)
}
