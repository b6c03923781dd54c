package metrics

import (
	"context"
	"net/http"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yogan_monitor"

// Exporter Prometheus view of the monitor on a private registry
type Exporter struct {
	registry     *prometheus.Registry
	uptime       prometheus.Gauge
	responseTime prometheus.Gauge
	errorRate    prometheus.Gauge
	users        prometheus.Gauge
	sessions     prometheus.Gauge
	system       *prometheus.GaugeVec
	checkStatus  *prometheus.GaugeVec
	checkLatency *prometheus.GaugeVec
	alerts       *prometheus.CounterVec
}

var _ alert.Sink = (*Exporter)(nil)

// NewExporter registers the monitor collectors
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "uptime_percent",
			Help: "Percent of successful health cycles.",
		}),
		responseTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "response_time_ms",
			Help: "Last target response time in milliseconds.",
		}),
		errorRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "error_rate_percent",
			Help: "Percent of failed health cycles.",
		}),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "users",
			Help: "Registered users reported by the backend.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sessions_24h",
			Help: "Sessions in the last 24 hours.",
		}),
		system: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "system_usage_percent",
			Help: "Host resource usage.",
		}, []string{"resource"}),
		checkStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "check_status",
			Help: "Last check status: 1 healthy, 0.5 degraded, 0 otherwise.",
		}, []string{"check"}),
		checkLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "check_duration_ms",
			Help: "Last check duration in milliseconds.",
		}, []string{"check"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "alerts_total",
			Help: "Alerts raised by level.",
		}, []string{"level"}),
	}

	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		e.uptime, e.responseTime, e.errorRate, e.users, e.sessions,
		e.system, e.checkStatus, e.checkLatency, e.alerts,
	)
	return e
}

// Registry underlying registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler /metrics handler
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ObserveMetrics copies a metrics snapshot into the gauges
func (e *Exporter) ObserveMetrics(m Metrics) {
	e.uptime.Set(m.Uptime)
	e.responseTime.Set(float64(m.ResponseTime))
	e.errorRate.Set(m.ErrorRate)
	e.users.Set(float64(m.UserCount))
	e.sessions.Set(float64(m.SessionCount))
	e.system.WithLabelValues("cpu").Set(m.SystemHealth.CPU)
	e.system.WithLabelValues("memory").Set(m.SystemHealth.Memory)
	e.system.WithLabelValues("disk").Set(m.SystemHealth.Disk)
}

// ObserveReport records per-check status and duration
func (e *Exporter) ObserveReport(r *health.Report) {
	if r == nil {
		return
	}
	for name, result := range r.Checks {
		e.checkStatus.WithLabelValues(name).Set(statusValue(result.Status))
		e.checkLatency.WithLabelValues(name).Set(float64(result.Duration))
	}
}

// Name alert sink name
func (e *Exporter) Name() string {
	return "prometheus"
}

// Deliver counts the alert
func (e *Exporter) Deliver(_ context.Context, a alert.Alert) error {
	e.alerts.WithLabelValues(string(a.Level)).Inc()
	return nil
}

func statusValue(s health.Status) float64 {
	switch s {
	case health.StatusHealthy:
		return 1
	case health.StatusDegraded:
		return 0.5
	default:
		return 0
	}
}
