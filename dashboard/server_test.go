package dashboard

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/application"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, monitorURL string) (*Server, *logger.TestCtxLogger) {
	t.Helper()
	log := logger.NewTestCtxLogger()
	s, err := New(Config{
		Server:       application.ServerConfig{Host: "127.0.0.1", Mode: gin.TestMode},
		MonitorURL:   monitorURL,
		ProxyTimeout: time.Second,
	}, log)
	require.NoError(t, err)
	return s, log
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestConfig_WebSocketURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"port plus one", Config{MonitorURL: "http://localhost:3001"}, "ws://localhost:3002"},
		{"default http port", Config{MonitorURL: "http://monitor.internal"}, "ws://monitor.internal:81"},
		{"tls", Config{MonitorURL: "https://monitor.example.com:8443"}, "wss://monitor.example.com:8444"},
		{"explicit", Config{MonitorURL: "http://localhost:3001", WSURL: "ws://feed:9000"}, "ws://feed:9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.WebSocketURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MonitorURL = "not a url"
	assert.Error(t, cfg.Validate())
}

func TestServer_Page(t *testing.T) {
	s, _ := newServer(t, "http://localhost:3001")

	rec := serve(s, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "localhost:3002")
	assert.Contains(t, body, "5000")
	assert.Contains(t, body, "disconnected")
}

func TestServer_ProxyForwards(t *testing.T) {
	var gotPath, gotQuery string
	monitor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"uptime":99.5}`)
	}))
	defer monitor.Close()
	s, _ := newServer(t, monitor.URL)

	rec := serve(s, http.MethodGet, "/api/logs?level=error&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uptime":99.5}`, rec.Body.String())
	assert.Equal(t, "/api/logs", gotPath)
	assert.Contains(t, gotQuery, "level=error")
	assert.Contains(t, gotQuery, "limit=5")
}

func TestServer_ProxyPassesUpstreamStatus(t *testing.T) {
	calls := 0
	monitor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"busy"}`)
	}))
	defer monitor.Close()
	s, _ := newServer(t, monitor.URL)

	rec := serve(s, http.MethodGet, "/api/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"busy"}`, rec.Body.String())
	assert.Equal(t, 1, calls, "proxy must not retry")
}

func TestServer_ProxyUpstreamDown(t *testing.T) {
	monitor := httptest.NewServer(http.NotFoundHandler())
	url := monitor.URL
	monitor.Close()
	s, log := newServer(t, url)

	rec := serve(s, http.MethodGet, "/api/metrics")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
	assert.True(t, log.HasLog("ERROR", "Monitor API request failed"))
}

func TestServer_StartStop(t *testing.T) {
	s, _ := newServer(t, "http://localhost:3001")

	require.NoError(t, s.Start())
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Stop(context.Background()))
}
