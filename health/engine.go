package health

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrCheckTimeout a check did not finish within Config.Timeout
var ErrCheckTimeout = errors.New("health check timeout")

// Alerter receives threshold alerts; *alert.Manager implements it
type Alerter interface {
	Raise(ctx context.Context, level alert.Level, check, message string, failureCount int) (alert.Alert, bool)
}

// Option configures an Engine
type Option func(*Engine)

// WithAlerter routes threshold alerts
func WithAlerter(a Alerter) Option {
	return func(e *Engine) {
		e.alerter = a
	}
}

// WithClock overrides the clock used for timestamps
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// Engine runs registered checks concurrently and tracks consecutive failures
type Engine struct {
	config  Config
	log     logger.Logger
	alerter Alerter
	clock   clockwork.Clock
	pool    *ants.Pool

	mu       sync.RWMutex
	checks   map[string]CheckFunc
	order    []string
	failures map[string]int
	latest   *Report
	history  []Report
}

// NewEngine creates an engine backed by a worker pool
func NewEngine(cfg Config, log logger.Logger, opts ...Option) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid health config: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create check pool: %w", err)
	}

	e := &Engine{
		config:   cfg,
		log:      log,
		clock:    clockwork.NewRealClock(),
		pool:     pool,
		checks:   make(map[string]CheckFunc),
		failures: make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AddCheck registers or replaces a check and resets its failure counter
func (e *Engine) AddCheck(name string, fn CheckFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.checks[name]; !exists {
		e.order = append(e.order, name)
	}
	e.checks[name] = fn
	e.failures[name] = 0
}

// Config effective configuration
func (e *Engine) Config() Config {
	return e.config
}

// Names registered check names in registration order
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

// FailureCount consecutive non-healthy results for name
func (e *Engine) FailureCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.failures[name]
}

// Latest most recent report, nil before the first cycle
func (e *Engine) Latest() *Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return nil
	}
	r := *e.latest
	return &r
}

// History past reports, oldest first
func (e *Engine) History() []Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Report(nil), e.history...)
}

// RunAllChecks runs every registered check once and returns the cycle report.
// Check failures never fail the cycle; they are folded into the report.
func (e *Engine) RunAllChecks(ctx context.Context) *Report {
	e.mu.RLock()
	names := append([]string(nil), e.order...)
	checks := make(map[string]CheckFunc, len(e.checks))
	for k, v := range e.checks {
		checks[k] = v
	}
	e.mu.RUnlock()

	start := e.clock.Now()
	e.log.DebugCtx(ctx, "Running health checks", zap.Int("count", len(names)))

	results := make(map[string]Result, len(names))
	var (
		resultsMu sync.Mutex
		wg        sync.WaitGroup
	)
	for _, name := range names {
		name, fn := name, checks[name]
		wg.Add(1)
		task := func() {
			defer wg.Done()
			r := e.runCheck(ctx, name, fn)
			resultsMu.Lock()
			results[name] = r
			resultsMu.Unlock()
		}
		if err := e.pool.Submit(task); err != nil {
			// pool released or overloaded
			go task()
		}
	}
	wg.Wait()

	report := &Report{
		Status:    CalculateOverallHealth(results),
		Timestamp: start,
		Duration:  e.clock.Since(start).Milliseconds(),
		Checks:    results,
		Summary:   GenerateSummary(results),
	}

	pending := e.record(names, report)
	for _, p := range pending {
		e.raise(ctx, p)
	}

	e.log.InfoCtx(ctx, "Health check cycle completed",
		zap.String("status", string(report.Status)),
		zap.Int("healthy", report.Summary.Healthy),
		zap.Int("total", report.Summary.TotalChecks),
		zap.Int64("duration_ms", report.Duration))

	return report
}

type thresholdAlert struct {
	level    alert.Level
	check    string
	failures int
}

// record updates counters, latest and history; returns alerts to raise
func (e *Engine) record(names []string, report *Report) []thresholdAlert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var pending []thresholdAlert
	for _, name := range names {
		result, ok := report.Checks[name]
		if !ok {
			continue
		}
		if _, still := e.checks[name]; !still {
			continue
		}
		if result.Status == StatusHealthy {
			e.failures[name] = 0
			continue
		}

		e.failures[name]++
		count := e.failures[name]
		switch {
		case count >= e.config.CriticalThreshold:
			pending = append(pending, thresholdAlert{level: alert.LevelCritical, check: name, failures: count})
		case count >= e.config.AlertThreshold:
			pending = append(pending, thresholdAlert{level: alert.LevelWarning, check: name, failures: count})
		}
	}

	e.latest = report
	if e.config.HistorySize > 0 {
		e.history = append(e.history, *report)
		if over := len(e.history) - e.config.HistorySize; over > 0 {
			e.history = append([]Report(nil), e.history[over:]...)
		}
	}
	return pending
}

func (e *Engine) raise(ctx context.Context, p thresholdAlert) {
	msg := fmt.Sprintf("Health check %s has failed %d times", p.check, p.failures)
	if p.level == alert.LevelCritical {
		msg = fmt.Sprintf("Health check %s has failed %d consecutive times", p.check, p.failures)
	}

	if e.alerter == nil {
		e.log.WarnCtx(ctx, msg, zap.String("check", p.check), zap.String("alert_level", string(p.level)))
		return
	}
	e.alerter.Raise(ctx, p.level, p.check, msg, p.failures)
}

// runCheck executes one check under the per-check timeout
func (e *Engine) runCheck(ctx context.Context, name string, fn CheckFunc) Result {
	start := e.clock.Now()

	checkCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	type outcome struct {
		out Output
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("check panicked: %v", r)}
			}
		}()
		out, err := fn(checkCtx)
		done <- outcome{out: out, err: err}
	}()

	var oc outcome
	select {
	case oc = <-done:
	case <-checkCtx.Done():
	}
	// a result delivered after the deadline still counts as a timeout
	if oc.err == nil && checkCtx.Err() != nil {
		oc = outcome{err: ErrCheckTimeout}
		if ctx.Err() != nil {
			oc.err = ctx.Err()
		}
	}

	result := Result{
		Name:      name,
		Duration:  e.clock.Since(start).Milliseconds(),
		Timestamp: start,
	}
	if oc.err != nil {
		result.Status = StatusError
		result.Message = oc.err.Error()
		e.log.WarnCtx(ctx, "Health check failed",
			zap.String("check", name),
			zap.Error(oc.err))
		return result
	}

	result.Status = oc.out.Status
	if result.Status == "" {
		result.Status = StatusHealthy
	}
	result.Message = oc.out.Message
	result.Data = oc.out.Data

	if result.Status != StatusHealthy {
		e.log.WarnCtx(ctx, "Health check not healthy",
			zap.String("check", name),
			zap.String("status", string(result.Status)),
			zap.String("message", result.Message))
	}
	return result
}

// Close releases the worker pool
func (e *Engine) Close() {
	e.pool.Release()
}
