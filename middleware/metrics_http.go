package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics HTTP 层指标（Prometheus）
type HTTPMetrics struct {
	requestsTotal    *prometheus.CounterVec   // 请求总数
	requestDuration  *prometheus.HistogramVec // 请求耗时
	requestsInFlight prometheus.Gauge         // 正在处理的请求数
}

// NewHTTPMetrics 在 reg 上注册 <namespace>_http_* 指标
func NewHTTPMetrics(reg prometheus.Registerer, namespace string) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"method", "path", "status_class"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests being served.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.requestsInFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler Gin 中间件
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // 路由模式，避免高基数
		if path == "" {
			path = "unknown"
		}

		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		c.Next()

		method := c.Request.Method
		m.requestsTotal.WithLabelValues(method, path, statusClass(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// statusClass 2xx/3xx/4xx/5xx
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
