package alert

import (
	"context"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Sink delivers an alert to one destination
type Sink interface {
	Name() string
	Deliver(ctx context.Context, a Alert) error
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the clock used for timestamps and cooldown
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithCooldown suppresses repeat alerts for the same check and level within d.
// Zero re-alerts every time.
func WithCooldown(d time.Duration) Option {
	return func(m *Manager) {
		m.cooldown = d
	}
}

// WithSink adds a sink delivered inline with Raise
func WithSink(s Sink) Option {
	return func(m *Manager) {
		m.sinks = append(m.sinks, s)
	}
}

// WithAsyncSink adds a sink delivered in the background; its errors are only logged
func WithAsyncSink(s Sink) Option {
	return func(m *Manager) {
		m.asyncSinks = append(m.asyncSinks, s)
	}
}

// Manager records alerts and fans them out
type Manager struct {
	store      *Store
	log        logger.Logger
	clock      clockwork.Clock
	cooldown   time.Duration
	sinks      []Sink
	asyncSinks []Sink

	mu       sync.Mutex
	lastSent map[string]time.Time
	inflight sync.WaitGroup
}

// NewManager creates a manager writing into store
func NewManager(store *Store, log logger.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	m := &Manager{
		store:    store,
		log:      log,
		clock:    clockwork.NewRealClock(),
		lastSent: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddSink registers an inline sink after construction
func (m *Manager) AddSink(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// AddAsyncSink registers a background sink after construction
func (m *Manager) AddAsyncSink(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asyncSinks = append(m.asyncSinks, s)
}

// HasSink reports whether a sink named name is registered
func (m *Manager) HasSink(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sinks {
		if s.Name() == name {
			return true
		}
	}
	for _, s := range m.asyncSinks {
		if s.Name() == name {
			return true
		}
	}
	return false
}

// Store alert history
func (m *Manager) Store() *Store {
	return m.store
}

// Raise creates an alert, stores it, logs it and delivers it to every sink.
// Returns false when the alert was suppressed by the cooldown.
func (m *Manager) Raise(ctx context.Context, level Level, check, message string, failureCount int) (Alert, bool) {
	now := m.clock.Now()

	m.mu.Lock()
	key := check + "|" + string(level)
	if m.cooldown > 0 {
		if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
			m.mu.Unlock()
			m.log.DebugCtx(ctx, "Alert suppressed by cooldown",
				zap.String("check", check),
				zap.String("alert_level", string(level)))
			return Alert{}, false
		}
	}
	m.lastSent[key] = now
	sinks := append([]Sink(nil), m.sinks...)
	asyncSinks := append([]Sink(nil), m.asyncSinks...)
	m.mu.Unlock()

	a := New(level, check, message, failureCount, now)
	m.store.Add(a)
	m.logAlert(ctx, a)

	for _, s := range sinks {
		if err := s.Deliver(ctx, a); err != nil {
			m.log.WarnCtx(ctx, "Alert delivery failed",
				zap.String("sink", s.Name()),
				zap.String("alert_id", a.ID),
				zap.Error(err))
		}
	}

	bg := context.WithoutCancel(ctx)
	for _, s := range asyncSinks {
		m.inflight.Add(1)
		go func(s Sink) {
			defer m.inflight.Done()
			if err := s.Deliver(bg, a); err != nil {
				m.log.WarnCtx(bg, "Alert delivery failed",
					zap.String("sink", s.Name()),
					zap.String("alert_id", a.ID),
					zap.Error(err))
			}
		}(s)
	}

	return a, true
}

// Flush waits for background deliveries or ctx
func (m *Manager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) logAlert(ctx context.Context, a Alert) {
	fields := []zap.Field{
		zap.String("alert_id", a.ID),
		zap.String("alert_level", string(a.Level)),
		zap.String("check", a.Check),
		zap.Int("failure_count", a.FailureCount),
	}
	msg := "ALERT: " + a.Message
	switch a.Level {
	case LevelCritical, LevelError:
		m.log.ErrorCtx(ctx, msg, fields...)
	case LevelWarning:
		m.log.WarnCtx(ctx, msg, fields...)
	default:
		m.log.InfoCtx(ctx, msg, fields...)
	}
}
