package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/alert"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/jonboulle/clockwork"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// Alert check names for host thresholds, one per resource so a cooldown on
// one never hides another
const (
	CheckCPU    = "system.cpu"
	CheckMemory = "system.memory"
	CheckDisk   = "system.disk"
)

// Reader samples host usage
type Reader interface {
	Read(ctx context.Context) (SystemHealth, error)
}

// HostReader reads the local host through gopsutil
type HostReader struct {
	DiskPath string
}

// Read CPU, memory and disk usage percentages
func (r HostReader) Read(ctx context.Context) (SystemHealth, error) {
	var h SystemHealth

	cpus, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return h, fmt.Errorf("read cpu: %w", err)
	}
	if len(cpus) > 0 {
		h.CPU = round2(cpus[0])
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return h, fmt.Errorf("read memory: %w", err)
	}
	h.Memory = round2(vm.UsedPercent)

	path := r.DiskPath
	if path == "" {
		path = "/"
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return h, fmt.Errorf("read disk %s: %w", path, err)
	}
	h.Disk = round2(usage.UsedPercent)

	return h, nil
}

// Alerter raises host alerts; *alert.Manager implements it
type Alerter interface {
	Raise(ctx context.Context, level alert.Level, check, message string, failureCount int) (alert.Alert, bool)
}

// Thresholds host alert limits in percent
type Thresholds struct {
	CPU         float64 `mapstructure:"cpu"`           // warning above
	Memory      float64 `mapstructure:"memory"`        // warning above
	DiskFreeMin float64 `mapstructure:"disk_free_min"` // error below
}

// DefaultThresholds CPU 80, memory 85, disk free 10
func DefaultThresholds() Thresholds {
	return Thresholds{CPU: 80, Memory: 85, DiskFreeMin: 10}
}

// Sampler samples the host on its own ticker, independent of the job scheduler
type Sampler struct {
	reader     Reader
	store      *Store
	alerter    Alerter
	log        logger.Logger
	clock      clockwork.Clock
	interval   time.Duration
	thresholds Thresholds
	onSample   func(Metrics)
}

// SamplerOption configures a Sampler
type SamplerOption func(*Sampler)

// WithSamplerClock overrides the ticker clock
func WithSamplerClock(clock clockwork.Clock) SamplerOption {
	return func(s *Sampler) {
		s.clock = clock
	}
}

// WithThresholds overrides the alert limits
func WithThresholds(t Thresholds) SamplerOption {
	return func(s *Sampler) {
		s.thresholds = t
	}
}

// WithOnSample is called after every successful sample
func WithOnSample(fn func(Metrics)) SamplerOption {
	return func(s *Sampler) {
		s.onSample = fn
	}
}

// NewSampler creates a sampler; interval <= 0 uses 10s
func NewSampler(reader Reader, store *Store, alerter Alerter, log logger.Logger, interval time.Duration, opts ...SamplerOption) *Sampler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Sampler{
		reader:     reader,
		store:      store,
		alerter:    alerter,
		log:        log,
		clock:      clockwork.NewRealClock(),
		interval:   interval,
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run samples every interval until ctx is done
func (s *Sampler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.SampleOnce(ctx)
		}
	}
}

// SampleOnce reads the host, stores the figures and raises threshold alerts
func (s *Sampler) SampleOnce(ctx context.Context) {
	h, err := s.reader.Read(ctx)
	if err != nil {
		s.log.WarnCtx(ctx, "System sample failed", zap.Error(err))
		return
	}

	m := s.store.SetSystem(h)
	s.evaluate(ctx, h)

	if s.onSample != nil {
		s.onSample(m)
	}
}

func (s *Sampler) evaluate(ctx context.Context, h SystemHealth) {
	if s.alerter == nil {
		return
	}
	if h.CPU > s.thresholds.CPU {
		s.alerter.Raise(ctx, alert.LevelWarning, CheckCPU,
			fmt.Sprintf("High CPU usage: %.1f%%", h.CPU), 0)
	}
	if h.Memory > s.thresholds.Memory {
		s.alerter.Raise(ctx, alert.LevelWarning, CheckMemory,
			fmt.Sprintf("High memory usage: %.1f%%", h.Memory), 0)
	}
	if free := 100 - h.Disk; free < s.thresholds.DiskFreeMin {
		s.alerter.Raise(ctx, alert.LevelError, CheckDisk,
			fmt.Sprintf("Low disk space: %.1f%% free", free), 0)
	}
}
