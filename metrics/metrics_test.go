package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/health"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordCheck(t *testing.T) {
	s := NewStore()
	assert.Equal(t, float64(100), s.Snapshot().Uptime)

	s.RecordCheck(true, 120*time.Millisecond)
	s.RecordCheck(true, 80*time.Millisecond)
	s.RecordCheck(false, 0)
	m := s.RecordCheck(true, 200*time.Millisecond)

	assert.Equal(t, float64(75), m.Uptime)
	assert.Equal(t, float64(25), m.ErrorRate)
	assert.Equal(t, int64(200), m.ResponseTime)
	assert.False(t, m.LastUpdated.IsZero())

	day := s.Day()
	assert.Equal(t, int64(4), day.Checks)
	assert.Equal(t, int64(1), day.FailedChecks)
	assert.Equal(t, int64(100), day.AverageResponseTime())
	assert.Equal(t, float64(75), day.UptimePercent())
}

func TestStore_ResetDay(t *testing.T) {
	s := NewStore()
	s.RecordCheck(false, time.Second)

	d := s.ResetDay()
	assert.Equal(t, int64(1), d.Checks)
	assert.Equal(t, DayStats{}, s.Day())
	assert.Equal(t, float64(100), s.Day().UptimePercent())

	// lifetime uptime is unaffected
	assert.Equal(t, float64(0), s.Snapshot().Uptime)
}

func TestStore_SetUsageAndSystem(t *testing.T) {
	s := NewStore()
	s.SetUsage(Usage{UserCount: 42, SessionCount: 7, CulturalEngagement: 61.5})
	m := s.SetSystem(SystemHealth{CPU: 12, Memory: 40, Disk: 70})

	assert.Equal(t, int64(42), m.UserCount)
	assert.Equal(t, int64(7), m.SessionCount)
	assert.Equal(t, 61.5, m.CulturalEngagement)
	assert.Equal(t, SystemHealth{CPU: 12, Memory: 40, Disk: 70}, m.SystemHealth)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); s.RecordCheck(true, time.Millisecond) }()
		go func() { defer wg.Done(); s.SetUsage(Usage{UserCount: 1}) }()
		go func() { defer wg.Done(); _ = s.Snapshot() }()
	}
	wg.Wait()
	assert.Equal(t, int64(50), s.Day().Checks)
}

func TestFileStore_AppendAndSummary(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)
	day := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	require.NoError(t, fs.Append(day, Metrics{UserCount: 1}))
	require.NoError(t, fs.Append(day.Add(5*time.Minute), Metrics{UserCount: 2}))

	assert.True(t, strings.HasSuffix(fs.MetricsPath(day), "metrics-2024-03-09.json"))
	entries, err := fs.Entries(day)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].Metrics.UserCount)
	assert.Equal(t, int64(2), entries[1].Metrics.UserCount)

	summary := DailySummary{Date: "2024-03-09", TotalAlerts: 3, Uptime: 99.5, AverageResponseTime: 240}
	require.NoError(t, fs.WriteSummary(summary, day))
	got, err := fs.ReadSummary(day)
	require.NoError(t, err)
	assert.Equal(t, summary, got)
	assert.True(t, strings.HasSuffix(fs.SummaryPath(day), "daily-summary-2024-03-09.json"))
}

func TestFileStore_EntriesMissingFile(t *testing.T) {
	entries, err := NewFileStore(t.TempDir()).Entries(time.Now())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type fakeReader struct {
	mu     sync.Mutex
	sample SystemHealth
	err    error
	calls  int
}

func (r *fakeReader) Read(ctx context.Context) (SystemHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.sample, r.err
}

func (r *fakeReader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestSampler_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		sample SystemHealth
		checks []string
	}{
		{"normal", SystemHealth{CPU: 20, Memory: 50, Disk: 60}, nil},
		{"high cpu", SystemHealth{CPU: 80.5, Memory: 50, Disk: 60}, []string{CheckCPU}},
		{"high memory", SystemHealth{CPU: 10, Memory: 90, Disk: 60}, []string{CheckMemory}},
		{"low disk", SystemHealth{CPU: 10, Memory: 10, Disk: 95}, []string{CheckDisk}},
		{"everything", SystemHealth{CPU: 99, Memory: 99, Disk: 99}, []string{CheckCPU, CheckMemory, CheckDisk}},
		{"at limits", SystemHealth{CPU: 80, Memory: 85, Disk: 90}, nil},
	}
	levels := map[string]alert.Level{
		CheckCPU:    alert.LevelWarning,
		CheckMemory: alert.LevelWarning,
		CheckDisk:   alert.LevelError,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := alert.NewStore(10)
			manager := alert.NewManager(store, nil)
			s := NewSampler(&fakeReader{sample: tt.sample}, NewStore(), manager, nil, time.Second)

			s.SampleOnce(context.Background())

			var checks []string
			for _, a := range store.Recent(0) {
				assert.Equal(t, levels[a.Check], a.Level, a.Check)
				checks = append([]string{a.Check}, checks...)
			}
			assert.Equal(t, tt.checks, checks)
		})
	}
}

func TestSampler_CooldownKeepsResourcesApart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := alert.NewStore(10)
	manager := alert.NewManager(store, nil, alert.WithClock(clock), alert.WithCooldown(time.Minute))
	s := NewSampler(&fakeReader{sample: SystemHealth{CPU: 99, Memory: 99, Disk: 95}}, NewStore(), manager, nil, time.Second)

	s.SampleOnce(context.Background())
	assert.Equal(t, 3, store.Len())

	// repeats inside the cooldown are suppressed per resource
	s.SampleOnce(context.Background())
	assert.Equal(t, 3, store.Len())

	clock.Advance(time.Minute)
	s.SampleOnce(context.Background())
	assert.Equal(t, 6, store.Len())
}

func TestSampler_ReadErrorLogged(t *testing.T) {
	log := logger.NewTestCtxLogger()
	metricsStore := NewStore()
	s := NewSampler(&fakeReader{err: errors.New("no /proc")}, metricsStore, nil, log, time.Second)

	s.SampleOnce(context.Background())

	assert.True(t, log.HasLog("WARN", "System sample failed"))
	assert.Equal(t, SystemHealth{}, metricsStore.Snapshot().SystemHealth)
}

func TestSampler_RunOnFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reader := &fakeReader{sample: SystemHealth{CPU: 5}}
	samples := make(chan Metrics, 4)

	s := NewSampler(reader, NewStore(), nil, nil, 10*time.Second,
		WithSamplerClock(clock),
		WithOnSample(func(m Metrics) { samples <- m }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 0, reader.count())

	clock.Advance(10 * time.Second)
	m := <-samples
	assert.Equal(t, float64(5), m.SystemHealth.CPU)

	clock.Advance(10 * time.Second)
	<-samples
	assert.Equal(t, 2, reader.count())

	cancel()
	<-done
}

func TestExporter(t *testing.T) {
	e := NewExporter()
	e.ObserveMetrics(Metrics{Uptime: 99.5, ResponseTime: 230, UserCount: 12, SystemHealth: SystemHealth{CPU: 40}})
	e.ObserveReport(&health.Report{Checks: map[string]health.Result{
		"connectivity": {Status: health.StatusHealthy, Duration: 12},
		"performance":  {Status: health.StatusDegraded, Duration: 2100},
		"auth":         {Status: health.StatusError},
	}})
	require.NoError(t, e.Deliver(context.Background(), alert.Alert{Level: alert.LevelCritical}))

	assert.Equal(t, 99.5, testutil.ToFloat64(e.uptime))
	assert.Equal(t, float64(12), testutil.ToFloat64(e.users))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.checkStatus.WithLabelValues("connectivity")))
	assert.Equal(t, 0.5, testutil.ToFloat64(e.checkStatus.WithLabelValues("performance")))
	assert.Equal(t, float64(0), testutil.ToFloat64(e.checkStatus.WithLabelValues("auth")))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.alerts.WithLabelValues("critical")))

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "yogan_monitor_uptime_percent 99.5")
}
