// Package monitor is the Monitor Service: it schedules health cycles, metrics
// collection and daily rollups, samples the host, and serves the HTTP API and
// the WebSocket feed.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/application"
	"github.com/KOMKZ/go-yogan-monitor/checks"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/httpclient"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/KOMKZ/go-yogan-monitor/metrics"
	"github.com/KOMKZ/go-yogan-monitor/scheduler"
	"github.com/KOMKZ/go-yogan-monitor/ws"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job names
const (
	JobHealthCheck  = "health-check"
	JobMetrics      = "metrics"
	JobDailySummary = "daily-summary"

	// CheckBackend alert check name for usage collection failures
	CheckBackend = "backend"
)

const reachabilityTimeout = 5 * time.Second

// Deps components owned by the process entry point and shared with the service
type Deps struct {
	Engine   *health.Engine
	Alerts   *alert.Manager
	Metrics  *metrics.Store
	Files    *metrics.FileStore
	Exporter *metrics.Exporter
	// Backend nil disables usage collection
	Backend *Backend
	// Reader host sampler source; nil uses gopsutil
	Reader metrics.Reader
	// Probes nil skips the startup reachability probe
	Probes *checks.Config
	Log    logger.Logger
}

// Service Monitor Service
type Service struct {
	cfg     Config
	backend BackendConfig
	deps    Deps
	log     logger.Logger
	clock   clockwork.Clock
	started time.Time

	hub     *ws.Hub
	sampler *metrics.Sampler
	probe   *httpclient.Client
	router  *gin.Engine

	lifecycle application.Lifecycle
	mu        sync.Mutex
	sched     *scheduler.Scheduler
	api       *application.HTTPServer
	wsServer  *application.HTTPServer
	cancel    context.CancelFunc
	samplerWG sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithClock clock for timestamps and job scheduling
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New wires the service; nothing runs until Start
func New(cfg Config, backend BackendConfig, deps Deps, opts ...Option) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}
	if deps.Engine == nil || deps.Alerts == nil {
		return nil, errors.New("monitor: engine and alert manager are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewStore()
	}
	if deps.Files == nil {
		deps.Files = metrics.NewFileStore(cfg.DataDir)
	}
	if deps.Exporter == nil {
		deps.Exporter = metrics.NewExporter()
	}
	if deps.Reader == nil {
		deps.Reader = metrics.HostReader{}
	}
	if deps.Log == nil {
		deps.Log = logger.NewNopLogger()
	}

	s := &Service{
		cfg:     cfg,
		backend: backend,
		deps:    deps,
		log:     deps.Log,
		clock:   clockwork.NewRealClock(),
		probe:   httpclient.NewClient(httpclient.DisableRetry(), httpclient.WithTimeout(reachabilityTimeout)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.clock.Now()

	s.hub = ws.NewHub(deps.Log, s.initPayload)
	s.sampler = metrics.NewSampler(deps.Reader, deps.Metrics, deps.Alerts, deps.Log, cfg.SampleInterval,
		metrics.WithSamplerClock(s.clock),
		metrics.WithThresholds(cfg.Thresholds),
		metrics.WithOnSample(s.publishMetrics),
	)

	router, err := s.buildRouter()
	if err != nil {
		return nil, err
	}
	s.router = router

	deps.Alerts.AddSink(deps.Exporter)
	deps.Alerts.AddSink(alert.NewFuncSink("websocket", func(ctx context.Context, a alert.Alert) error {
		s.Hub().Broadcast(ws.TypeAlert, a)
		return nil
	}))

	return s, nil
}

// Hub WebSocket hub of the current run
func (s *Service) Hub() *ws.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub
}

// State current lifecycle state
func (s *Service) State() application.State {
	return s.lifecycle.State()
}

// APIAddr bound API address, "" when stopped
func (s *Service) APIAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.api == nil {
		return ""
	}
	return s.api.Addr()
}

// WSAddr bound WebSocket address, "" when stopped
func (s *Service) WSAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wsServer == nil {
		return ""
	}
	return s.wsServer.Addr()
}

// Start validates credentials, probes the target, starts the jobs, the
// sampler and both listeners. Starting a running service logs a warning.
func (s *Service) Start(ctx context.Context) error {
	if !s.lifecycle.Transition(application.StateStopped, application.StateStarting) {
		s.log.WarnCtx(ctx, "Monitor already running", zap.String("state", s.State().String()))
		return nil
	}
	s.log.InfoCtx(ctx, "Starting monitor", zap.String("version", s.cfg.Version))

	if err := s.start(ctx); err != nil {
		s.teardown(ctx)
		s.lifecycle.Set(application.StateStopped)
		return err
	}

	s.lifecycle.Set(application.StateRunning)
	s.log.InfoCtx(ctx, "Monitor started",
		zap.String("api", s.APIAddr()), zap.String("ws", s.WSAddr()))
	return nil
}

func (s *Service) start(ctx context.Context) error {
	if s.cfg.RequireBackend {
		if err := s.backend.RequireCredentials(); err != nil {
			s.log.ErrorCtx(ctx, "Missing backend credentials", zap.Error(err))
			return err
		}
	}
	s.checkReachability(ctx)

	sched, err := scheduler.New(s.log, scheduler.WithClock(s.clock))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sched = sched
	s.mu.Unlock()

	if err := sched.Every(JobHealthCheck, s.cfg.CheckInterval, true, func(ctx context.Context) {
		s.RunHealthCycle(ctx)
	}); err != nil {
		return err
	}
	if err := sched.Every(JobMetrics, s.cfg.MetricsInterval, false, s.CollectMetrics); err != nil {
		return err
	}
	if err := sched.Daily(JobDailySummary, 0, 0, 0, func(ctx context.Context) {
		// fires at midnight: summarise the day that just ended
		s.WriteDailySummary(ctx, s.clock.Now().Add(-time.Minute))
	}); err != nil {
		return err
	}

	api := application.NewHTTPServer("api", s.cfg.Server, s.router, s.log)
	if err := api.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	s.api = api
	s.mu.Unlock()

	// a closed hub refuses clients, so every run gets a fresh one
	hub := ws.NewHub(s.log, s.initPayload)
	s.mu.Lock()
	s.hub = hub
	s.mu.Unlock()

	wsServer := application.NewHTTPServer("ws", s.cfg.WebSocketServer(), hub, s.log)
	if err := wsServer.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	s.wsServer = wsServer
	s.mu.Unlock()

	samplerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.samplerWG.Add(1)
	go func() {
		defer s.samplerWG.Done()
		s.sampler.Run(samplerCtx)
	}()

	sched.Start()
	return nil
}

// checkReachability logs a warning when the target does not answer
func (s *Service) checkReachability(ctx context.Context) {
	if s.deps.Probes == nil || s.deps.Probes.TargetURL == "" {
		return
	}
	url := s.deps.Probes.TargetURL
	if err := reachable(ctx, s.probe, url); err != nil {
		s.log.WarnCtx(ctx, "Target application unreachable",
			zap.String("url", url), zap.Error(err))
		return
	}
	s.log.InfoCtx(ctx, "Target application reachable", zap.String("url", url))
}

// Stop stops the jobs and the sampler, then closes the WebSocket and API
// listeners. Stopping a service that is not running does nothing.
func (s *Service) Stop(ctx context.Context) error {
	if !s.lifecycle.Transition(application.StateRunning, application.StateStopping) {
		return nil
	}
	s.log.InfoCtx(ctx, "Stopping monitor")

	err := s.teardown(ctx)
	s.lifecycle.Set(application.StateStopped)
	if err != nil {
		s.log.ErrorCtx(ctx, "Monitor stopped with errors", zap.Error(err))
		return err
	}
	s.log.InfoCtx(ctx, "Monitor stopped")
	return nil
}

func (s *Service) teardown(ctx context.Context) error {
	s.mu.Lock()
	sched, api, wsServer, cancel, hub := s.sched, s.api, s.wsServer, s.cancel, s.hub
	s.sched, s.api, s.wsServer, s.cancel = nil, nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer done()

	g, gctx := errgroup.WithContext(ctx)
	if sched != nil {
		g.Go(func() error {
			return sched.Stop(s.cfg.ShutdownTimeout)
		})
	}
	g.Go(func() error {
		s.samplerWG.Wait()
		return nil
	})
	g.Go(func() error {
		hub.Close()
		if wsServer != nil {
			return wsServer.Shutdown(gctx)
		}
		return nil
	})
	if api != nil {
		g.Go(func() error {
			return api.Shutdown(gctx)
		})
	}
	err := g.Wait()

	if ferr := s.deps.Alerts.Flush(ctx); ferr != nil {
		s.log.WarnCtx(ctx, "Pending alert deliveries abandoned", zap.Error(ferr))
	}
	return err
}

// RunHealthCycle runs the check battery once and folds the report into the
// metrics. Threshold alerts are raised by the engine.
func (s *Service) RunHealthCycle(ctx context.Context) *health.Report {
	report := s.deps.Engine.RunAllChecks(ctx)

	rt := time.Duration(report.Duration) * time.Millisecond
	if r, ok := report.Checks[checks.NameConnectivity]; ok {
		rt = time.Duration(r.Duration) * time.Millisecond
	}
	success := report.IsHealthy() || report.IsDegraded()

	m := s.deps.Metrics.RecordCheck(success, rt)
	s.deps.Exporter.ObserveReport(report)
	s.publishMetrics(m)

	s.log.DebugCtx(ctx, "Health cycle completed",
		zap.String("status", string(report.Status)),
		zap.Int("success_rate", report.Summary.SuccessRate),
		zap.Int64("duration_ms", report.Duration))
	return report
}

// CollectMetrics pulls usage from the backend, merges it and appends the
// snapshot to today's metrics file. Failures are logged; a backend failure
// also raises a warning alert.
func (s *Service) CollectMetrics(ctx context.Context) {
	now := s.clock.Now()
	m := s.deps.Metrics.Snapshot()

	if s.deps.Backend != nil {
		usage, err := s.deps.Backend.Usage(ctx, now)
		if err != nil {
			s.log.WarnCtx(ctx, "Backend metrics collection failed", zap.Error(err))
			s.deps.Alerts.Raise(ctx, alert.LevelWarning, CheckBackend,
				"Failed to collect backend metrics: "+err.Error(), 0)
		} else {
			m = s.deps.Metrics.SetUsage(usage)
		}
	}

	s.publishMetrics(m)
	if err := s.deps.Files.Append(now, m); err != nil {
		s.log.ErrorCtx(ctx, "Failed to persist metrics", zap.Error(err))
	}
}

// WriteDailySummary writes the rollup for day and starts a new day of counters
func (s *Service) WriteDailySummary(ctx context.Context, day time.Time) metrics.DailySummary {
	stats := s.deps.Metrics.ResetDay()
	y, mo, d := day.Date()
	start := time.Date(y, mo, d, 0, 0, 0, 0, day.Location())

	summary := metrics.DailySummary{
		Date:                day.Format(metrics.DateLayout),
		TotalAlerts:         s.deps.Alerts.Store().CountSince(start),
		Uptime:              stats.UptimePercent(),
		AverageResponseTime: stats.AverageResponseTime(),
		TotalChecks:         stats.Checks,
		FailedChecks:        stats.FailedChecks,
		Metrics:             s.deps.Metrics.Snapshot(),
	}
	if err := s.deps.Files.WriteSummary(summary, day); err != nil {
		s.log.ErrorCtx(ctx, "Failed to write daily summary", zap.Error(err))
		return summary
	}
	s.log.InfoCtx(ctx, "Daily summary written",
		zap.String("date", summary.Date),
		zap.Int("total_alerts", summary.TotalAlerts),
		zap.Float64("uptime", summary.Uptime))
	return summary
}

func (s *Service) publishMetrics(m metrics.Metrics) {
	s.deps.Exporter.ObserveMetrics(m)
	s.Hub().Broadcast(ws.TypeMetrics, m)
}

// PublicConfig config subset shown to dashboards
func (s *Service) PublicConfig() PublicConfig {
	pc := PublicConfig{
		Version:         s.cfg.Version,
		CheckInterval:   s.cfg.CheckInterval.String(),
		MetricsInterval: s.cfg.MetricsInterval.String(),
	}
	if s.deps.Probes != nil {
		pc.TargetURL = s.deps.Probes.TargetURL
	}
	engineCfg := s.deps.Engine.Config()
	pc.AlertThreshold = engineCfg.AlertThreshold
	pc.CriticalThreshold = engineCfg.CriticalThreshold
	pc.WebhookEnabled = s.deps.Alerts.HasSink("webhook")

	s.mu.Lock()
	sched := s.sched
	s.mu.Unlock()
	if sched != nil {
		for _, name := range sched.Names() {
			// zero until the scheduler has planned the job
			if next, err := sched.NextRun(name); err == nil && !next.IsZero() {
				if pc.NextRuns == nil {
					pc.NextRuns = make(map[string]time.Time)
				}
				pc.NextRuns[name] = next
			}
		}
	}
	return pc
}

// initPayload first WebSocket frame: metrics, last 10 alerts, config
func (s *Service) initPayload() interface{} {
	return gin.H{
		"metrics": s.deps.Metrics.Snapshot(),
		"alerts":  s.deps.Alerts.Store().Recent(10),
		"config":  s.PublicConfig(),
	}
}
