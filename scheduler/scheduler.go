// Package scheduler runs the monitor's periodic jobs on gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultShutdownTimeout time Stop waits for running tasks
const DefaultShutdownTimeout = 30 * time.Second

var (
	// ErrDuplicateJob a job with the same name is already registered
	ErrDuplicateJob = errors.New("scheduler: duplicate job")
	// ErrJobNotFound no job with that name
	ErrJobNotFound = errors.New("scheduler: job not found")
	// ErrShutdownTimeout running tasks did not finish in time
	ErrShutdownTimeout = errors.New("scheduler: shutdown timeout")
)

// Task receives the scheduler context, cancelled by Stop
type Task func(ctx context.Context)

// Scheduler named jobs on top of a gocron scheduler
type Scheduler struct {
	s        gocron.Scheduler
	log      logger.Logger
	location *time.Location
	ctx      context.Context
	cancel   context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]gocron.Job
}

type options struct {
	clock    clockwork.Clock
	location *time.Location
}

// Option configures a Scheduler
type Option func(*options)

// WithClock drives the scheduler from clock (fake clocks in tests)
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLocation time zone for cron expressions, default local
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

// New creates a stopped scheduler
func New(log logger.Logger, opts ...Option) (*Scheduler, error) {
	o := &options{location: time.Local}
	for _, opt := range opts {
		opt(o)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	gopts := []gocron.SchedulerOption{gocron.WithLocation(o.location)}
	if o.clock != nil {
		gopts = append(gopts, gocron.WithClock(o.clock))
	}
	s, err := gocron.NewScheduler(gopts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		s:        s,
		log:      log,
		location: o.location,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[string]gocron.Job),
	}, nil
}

// Every runs task every interval; immediate also runs it once on Start
func (s *Scheduler) Every(name string, interval time.Duration, immediate bool, task Task) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	var opts []gocron.JobOption
	if immediate {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	return s.add(name, gocron.DurationJob(interval), task, opts...)
}

// Daily runs task every day at hh:mm:ss in the scheduler's location
func (s *Scheduler) Daily(name string, hour, minute, second uint, task Task) error {
	at := gocron.NewAtTimes(gocron.NewAtTime(hour, minute, second))
	return s.add(name, gocron.DailyJob(1, at), task)
}

func (s *Scheduler) add(name string, def gocron.JobDefinition, task Task, opts ...gocron.JobOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	opts = append(opts, gocron.WithName(name))
	job, err := s.s.NewJob(def, gocron.NewTask(s.wrap(name, task)), opts...)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	s.jobs[name] = job
	s.log.DebugCtx(s.ctx, "Job registered", zap.String("job", name))
	return nil
}

// wrap keeps a panicking task from taking the scheduler down
func (s *Scheduler) wrap(name string, task Task) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.ErrorCtx(s.ctx, "Job panicked",
					zap.String("job", name), zap.Any("panic", r))
			}
		}()
		task(s.ctx)
	}
}

// Names registered job names, sorted
func (s *Scheduler) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun next scheduled run of the named job
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return job.NextRun()
}

// Start begins scheduling; non-blocking
func (s *Scheduler) Start() {
	s.s.Start()
	s.log.DebugCtx(s.ctx, "Scheduler started", zap.Strings("jobs", s.Names()))
}

// Stop cancels the task context and waits up to timeout for running tasks.
// timeout <= 0 uses DefaultShutdownTimeout.
func (s *Scheduler) Stop(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	s.cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.s.Shutdown()
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.ErrorCtx(context.Background(), "Scheduler close failed", zap.Error(err))
			return err
		}
		s.log.DebugCtx(context.Background(), "Scheduler closed")
		return nil
	case <-time.After(timeout):
		s.log.WarnCtx(context.Background(), "Scheduler close timeout, forcing exit",
			zap.Duration("timeout", timeout))
		return fmt.Errorf("%w (%v)", ErrShutdownTimeout, timeout)
	}
}
