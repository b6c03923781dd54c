package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_EveryRunsRepeatedly(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Every("tick", 20*time.Millisecond, false, func(ctx context.Context) {
		runs.Add(1)
	}))

	s.Start()
	defer s.Stop(time.Second)

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_ImmediateRunsOnStart(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Every("health", time.Hour, true, func(ctx context.Context) {
		runs.Add(1)
	}))

	s.Start()
	defer s.Stop(time.Second)

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_DuplicateAndInvalid(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	noop := func(context.Context) {}

	require.NoError(t, s.Every("a", time.Minute, false, noop))
	assert.ErrorIs(t, s.Every("a", time.Minute, false, noop), ErrDuplicateJob)
	assert.Error(t, s.Every("b", 0, false, noop))
	assert.Error(t, s.Daily("c", 25, 0, 0, noop))

	require.NoError(t, s.Daily("e", 0, 0, 0, noop))
	assert.Equal(t, []string{"a", "e"}, s.Names())

	_, err = s.NextRun("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_PanicIsLogged(t *testing.T) {
	log := logger.NewTestCtxLogger()
	s, err := New(log)
	require.NoError(t, err)

	var after atomic.Int32
	require.NoError(t, s.Every("boom", 20*time.Millisecond, false, func(ctx context.Context) {
		if after.Add(1) == 1 {
			panic("kaboom")
		}
	}))

	s.Start()
	defer s.Stop(time.Second)

	assert.Eventually(t, func() bool { return after.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, log.HasLogWithField("ERROR", "Job panicked", "job", "boom"))
}

func TestScheduler_StopCancelsTaskContext(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, s.Every("long", time.Hour, true, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}))

	s.Start()
	<-started
	require.NoError(t, s.Stop(time.Second))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestScheduler_FakeClockDoesNotAdvance(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s, err := New(nil, WithClock(clock), WithLocation(time.UTC))
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Every("metrics", 5*time.Minute, false, func(ctx context.Context) {
		runs.Add(1)
	}))

	s.Start()
	defer s.Stop(time.Second)

	assert.Never(t, func() bool { return runs.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestScheduler_FakeClockAdvance(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s, err := New(nil, WithClock(clock))
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.Every("health", 30*time.Second, false, func(ctx context.Context) {
		runs.Add(1)
	}))

	s.Start()
	defer s.Stop(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := int32(1); i <= 3; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(30 * time.Second)
		want := i
		assert.Eventually(t, func() bool { return runs.Load() == want }, 2*time.Second, 5*time.Millisecond)
	}
}
