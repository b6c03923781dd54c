package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type raised struct {
	level    alert.Level
	check    string
	failures int
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []raised
}

func (r *recordingAlerter) Raise(ctx context.Context, level alert.Level, check, message string, failureCount int) (alert.Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, raised{level: level, check: check, failures: failureCount})
	return alert.Alert{}, true
}

func (r *recordingAlerter) all() []raised {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]raised(nil), r.alerts...)
}

func statusCheck(s Status) CheckFunc {
	return func(ctx context.Context) (Output, error) {
		return Output{Status: s, Message: string(s)}, nil
	}
}

func failingCheck(ctx context.Context) (Output, error) {
	return Output{}, errors.New("connection refused")
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, logger.NewTestCtxLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestEngine_MixedResultsDegraded(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.AddCheck("connectivity", statusCheck(StatusHealthy))
	e.AddCheck("performance", statusCheck(StatusDegraded))
	e.AddCheck("pwa", statusCheck(StatusHealthy))

	report := e.RunAllChecks(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, 3, report.Summary.TotalChecks)
	assert.Equal(t, 2, report.Summary.Healthy)
	assert.Equal(t, 1, report.Summary.Degraded)
	assert.Equal(t, 67, report.Summary.SuccessRate)
	assert.Len(t, report.Checks, 3)
}

func TestEngine_ErrorBelowThresholdNoAlert(t *testing.T) {
	alerter := &recordingAlerter{}
	e := newTestEngine(t, DefaultConfig(), WithAlerter(alerter))
	e.AddCheck("database", failingCheck)

	report := e.RunAllChecks(context.Background())

	result := report.Checks["database"]
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "connection refused", result.Message)
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, 1, e.FailureCount("database"))
	assert.Empty(t, alerter.all())
}

func TestEngine_WarningThenCritical(t *testing.T) {
	alerter := &recordingAlerter{}
	e := newTestEngine(t, DefaultConfig(), WithAlerter(alerter))
	e.AddCheck("database", failingCheck)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		e.RunAllChecks(ctx)
	}
	assert.Empty(t, alerter.all())

	e.RunAllChecks(ctx)
	alerts := alerter.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, raised{level: alert.LevelWarning, check: "database", failures: 3}, alerts[0])

	// re-alerts every cycle past the threshold
	e.RunAllChecks(ctx)
	e.RunAllChecks(ctx)
	alerts = alerter.all()
	require.Len(t, alerts, 3)
	assert.Equal(t, alert.LevelWarning, alerts[1].level)
	assert.Equal(t, raised{level: alert.LevelCritical, check: "database", failures: 5}, alerts[2])
}

func TestEngine_FailureCounterResetsOnHealthy(t *testing.T) {
	var mu sync.Mutex
	healthy := false
	e := newTestEngine(t, DefaultConfig())
	e.AddCheck("auth", func(ctx context.Context) (Output, error) {
		mu.Lock()
		defer mu.Unlock()
		if healthy {
			return Output{Status: StatusHealthy}, nil
		}
		return Output{Status: StatusUnhealthy, Message: "HTTP 503"}, nil
	})
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		e.RunAllChecks(ctx)
		assert.Equal(t, i, e.FailureCount("auth"))
	}

	mu.Lock()
	healthy = true
	mu.Unlock()

	e.RunAllChecks(ctx)
	assert.Equal(t, 0, e.FailureCount("auth"))
}

func TestEngine_DegradedCountsAsFailure(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.AddCheck("performance", statusCheck(StatusDegraded))

	e.RunAllChecks(context.Background())
	assert.Equal(t, 1, e.FailureCount("performance"))
}

func TestEngine_TimeoutYieldsError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	e := newTestEngine(t, cfg)

	e.AddCheck("slow", func(ctx context.Context) (Output, error) {
		select {
		case <-time.After(5 * time.Second):
			return Output{Status: StatusHealthy}, nil
		case <-ctx.Done():
			// ignore cancellation and claim success
			return Output{Status: StatusHealthy}, nil
		}
	})
	e.AddCheck("fast", statusCheck(StatusHealthy))

	start := time.Now()
	report := e.RunAllChecks(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	slow := report.Checks["slow"]
	assert.NotEqual(t, StatusHealthy, slow.Status)
	assert.Equal(t, StatusError, slow.Status)
	assert.Contains(t, slow.Message, "timeout")
	assert.Equal(t, StatusHealthy, report.Checks["fast"].Status)
}

func TestEngine_TimeoutIgnoringContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Millisecond
	e := newTestEngine(t, cfg)

	release := make(chan struct{})
	defer close(release)
	e.AddCheck("stuck", func(ctx context.Context) (Output, error) {
		<-release
		return Output{Status: StatusHealthy}, nil
	})

	report := e.RunAllChecks(context.Background())
	assert.Equal(t, StatusError, report.Checks["stuck"].Status)
	assert.Equal(t, ErrCheckTimeout.Error(), report.Checks["stuck"].Message)
}

func TestEngine_PanicBecomesError(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.AddCheck("boom", func(ctx context.Context) (Output, error) {
		panic("nil map")
	})

	report := e.RunAllChecks(context.Background())
	assert.Equal(t, StatusError, report.Checks["boom"].Status)
	assert.Contains(t, report.Checks["boom"].Message, "nil map")
}

func TestEngine_EmptyStatusMeansHealthy(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.AddCheck("ok", func(ctx context.Context) (Output, error) {
		return Output{Message: "fine"}, nil
	})

	report := e.RunAllChecks(context.Background())
	assert.Equal(t, StatusHealthy, report.Checks["ok"].Status)
}

func TestEngine_NoChecksUnknown(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	report := e.RunAllChecks(context.Background())
	assert.Equal(t, StatusUnknown, report.Status)
	assert.Equal(t, 0, report.Summary.TotalChecks)
	assert.Equal(t, 0, report.Summary.SuccessRate)
}

func TestEngine_LatestAndHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 3
	e := newTestEngine(t, cfg)
	e.AddCheck("ok", statusCheck(StatusHealthy))

	assert.Nil(t, e.Latest())

	for i := 0; i < 5; i++ {
		e.RunAllChecks(context.Background())
	}

	require.NotNil(t, e.Latest())
	assert.Equal(t, StatusHealthy, e.Latest().Status)
	assert.Len(t, e.History(), 3)
}

func TestEngine_AddCheckResetsCounter(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	e.AddCheck("db", failingCheck)
	e.RunAllChecks(context.Background())
	e.RunAllChecks(context.Background())
	require.Equal(t, 2, e.FailureCount("db"))

	e.AddCheck("db", statusCheck(StatusHealthy))
	assert.Equal(t, 0, e.FailureCount("db"))
	assert.Equal(t, []string{"db"}, e.Names())
}

func TestEngine_ChecksRunConcurrently(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	for i := 0; i < 5; i++ {
		e.AddCheck(fmt.Sprintf("sleep-%d", i), func(ctx context.Context) (Output, error) {
			time.Sleep(100 * time.Millisecond)
			return Output{Status: StatusHealthy}, nil
		})
	}

	start := time.Now()
	report := e.RunAllChecks(context.Background())

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, 5, report.Summary.Healthy)
}

func TestEngine_WithAlertManager(t *testing.T) {
	store := alert.NewStore(10)
	manager := alert.NewManager(store, nil)
	e := newTestEngine(t, DefaultConfig(), WithAlerter(manager))
	e.AddCheck("audio", failingCheck)

	for i := 0; i < 3; i++ {
		e.RunAllChecks(context.Background())
	}

	require.Equal(t, 1, store.Len())
	a := store.Recent(1)[0]
	assert.Equal(t, alert.LevelWarning, a.Level)
	assert.Equal(t, "audio", a.Check)
	assert.Equal(t, 3, a.FailureCount)
	assert.Equal(t, "Health check audio has failed 3 times", a.Message)
}

func TestEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AlertThreshold = 6
	cfg.CriticalThreshold = 5

	_, err := NewEngine(cfg, nil)
	assert.Error(t, err)
}
