package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/flagx"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/httpclient"
	"github.com/KOMKZ/go-yogan-monitor/metrics"
	"github.com/spf13/cobra"
)

type statusOptions struct {
	URL     string        `flag:"url,u" usage:"monitor API URL" default:"http://localhost:3001"`
	Timeout time.Duration `flag:"timeout" usage:"request timeout" default:"5s"`
}

// healthResponse body of GET /health
type healthResponse struct {
	Status    health.Status   `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Uptime    float64         `json:"uptime"` // seconds
	Version   string          `json:"version"`
	Metrics   metrics.Metrics `json:"metrics"`
}

func newStatusCommand() *cobra.Command {
	var opts statusOptions
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status reported by a running monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flagx.ParseFlags(cmd, &opts); err != nil {
				return err
			}
			h, err := fetchStatus(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), opts.URL, h)
			if h.Status == health.StatusUnhealthy {
				return fmt.Errorf("target application is %s", h.Status)
			}
			return nil
		},
	}
	return bind(cmd, &opts)
}

func fetchStatus(ctx context.Context, opts statusOptions) (*healthResponse, error) {
	client := httpclient.NewClient(
		httpclient.WithTimeout(opts.Timeout),
		httpclient.DisableRetry(),
	)

	url := strings.TrimRight(opts.URL, "/") + "/health"
	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("monitor not reachable at %s: %w", opts.URL, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("monitor returned HTTP %d", resp.StatusCode)
	}

	var h healthResponse
	if err := resp.JSON(&h); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &h, nil
}

func printStatus(out io.Writer, url string, h *healthResponse) {
	m := h.Metrics
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Monitor:\t%s\n", url)
	fmt.Fprintf(w, "Status:\t%s\n", h.Status)
	fmt.Fprintf(w, "Version:\t%s\n", h.Version)
	fmt.Fprintf(w, "Running for:\t%s\n", (time.Duration(h.Uptime) * time.Second).String())
	fmt.Fprintf(w, "Uptime:\t%.2f%%\n", m.Uptime)
	fmt.Fprintf(w, "Error rate:\t%.2f%%\n", m.ErrorRate)
	fmt.Fprintf(w, "Response time:\t%dms\n", m.ResponseTime)
	fmt.Fprintf(w, "Users:\t%d\n", m.UserCount)
	fmt.Fprintf(w, "Sessions (24h):\t%d\n", m.SessionCount)
	fmt.Fprintf(w, "CPU / memory / disk:\t%.1f%% / %.1f%% / %.1f%%\n",
		m.SystemHealth.CPU, m.SystemHealth.Memory, m.SystemHealth.Disk)
	_ = w.Flush()
}
