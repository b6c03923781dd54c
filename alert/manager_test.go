package alert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(ctx context.Context, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func TestManager_RaiseStoresLogsAndDelivers(t *testing.T) {
	log := logger.NewTestCtxLogger()
	sink := &recordingSink{}
	m := NewManager(NewStore(10), log, WithSink(sink))

	a, ok := m.Raise(context.Background(), LevelWarning, "database", "Health check database has failed 3 times", 3)
	require.True(t, ok)

	assert.Equal(t, 1, m.Store().Len())
	assert.Equal(t, a.ID, m.Store().Recent(1)[0].ID)
	assert.Equal(t, 1, sink.count())
	assert.True(t, log.HasLogWithField("WARN", "ALERT: Health check database has failed 3 times", "check", "database"))
}

func TestManager_CriticalLoggedAsError(t *testing.T) {
	log := logger.NewTestCtxLogger()
	m := NewManager(NewStore(10), log)

	m.Raise(context.Background(), LevelCritical, "auth", "down", 5)

	assert.Equal(t, 1, log.CountLogs("ERROR"))
}

func TestManager_SinkErrorIsLogged(t *testing.T) {
	log := logger.NewTestCtxLogger()
	sink := &recordingSink{err: errors.New("boom")}
	m := NewManager(NewStore(10), log, WithSink(sink))

	_, ok := m.Raise(context.Background(), LevelWarning, "c", "m", 3)

	assert.True(t, ok)
	assert.True(t, log.HasLogWithField("WARN", "Alert delivery failed", "sink", "recording"))
}

func TestManager_Cooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(NewStore(10), nil, WithClock(clock), WithCooldown(time.Minute))
	ctx := context.Background()

	_, ok := m.Raise(ctx, LevelWarning, "c", "m", 3)
	assert.True(t, ok)

	_, ok = m.Raise(ctx, LevelWarning, "c", "m", 4)
	assert.False(t, ok)

	// other level is tracked separately
	_, ok = m.Raise(ctx, LevelCritical, "c", "m", 5)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = m.Raise(ctx, LevelWarning, "c", "m", 6)
	assert.True(t, ok)

	assert.Equal(t, 3, m.Store().Len())
}

func TestManager_NoCooldownRealertsEveryTime(t *testing.T) {
	m := NewManager(NewStore(10), nil)
	for i := 0; i < 4; i++ {
		m.Raise(context.Background(), LevelWarning, "c", "m", 3+i)
	}
	assert.Equal(t, 4, m.Store().Len())
}

func TestManager_AsyncSinkAndFlush(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(NewStore(10), nil, WithAsyncSink(sink))

	m.Raise(context.Background(), LevelWarning, "c", "m", 3)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 1, sink.count())
}

func TestWebhookSink_PostsAlert(t *testing.T) {
	received := make(chan Alert, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a Alert
		_ = json.NewDecoder(r.Body).Decode(&a)
		received <- a
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sink := NewWebhookSink(WebhookConfig{URL: ts.URL})
	a := New(LevelCritical, "auth", "down", 5, time.Now())

	require.NoError(t, sink.Deliver(context.Background(), a))
	got := <-received
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, LevelCritical, got.Level)
}

func TestWebhookSink_NonSuccessIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	sink := NewWebhookSink(WebhookConfig{URL: ts.URL})
	err := sink.Deliver(context.Background(), New(LevelWarning, "c", "m", 3, time.Now()))
	assert.Error(t, err)
}

type fakePublisher struct {
	key   string
	value interface{}
}

func (p *fakePublisher) PublishJSON(ctx context.Context, key string, value interface{}) error {
	p.key = key
	p.value = value
	return nil
}

func TestPublisherSink_KeysByCheck(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewPublisherSink("kafka", pub)
	a := New(LevelWarning, "pwa", "m", 3, time.Now())

	require.NoError(t, sink.Deliver(context.Background(), a))
	assert.Equal(t, "pwa", pub.key)
	assert.Equal(t, a, pub.value)
	assert.Equal(t, "kafka", sink.Name())
}
