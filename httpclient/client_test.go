package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient()

	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.settings.timeout)
}

func TestNewClient_WithOptions(t *testing.T) {
	client := NewClient(
		WithBaseURL("https://api.example.com"),
		WithTimeout(5*time.Second),
		WithHeader("User-Agent", "Test/1.0"),
	)

	assert.Equal(t, "https://api.example.com", client.settings.baseURL)
	assert.Equal(t, 5*time.Second, client.settings.timeout)
	assert.Equal(t, "Test/1.0", client.settings.header.Get("User-Agent"))
}

func TestClient_Get_BaseURLAndHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.URL), WithHeader("apikey", "secret"))
	resp, err := client.Get(context.Background(), "/rest/v1/", WithQuery("limit", "1"))
	require.NoError(t, err)

	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 1, resp.Attempts)
	assert.Equal(t, `{"message":"ok"}`, string(resp.Body))
}

func TestClient_Head(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "audio/mpeg")
	}))
	defer ts.Close()

	resp, err := NewClient().Head(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", resp.Headers.Get("Content-Type"))
}

func TestClient_PostJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	resp, err := NewClient().PostJSON(context.Background(), ts.URL, map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	_, err := NewClient(WithTimeout(50*time.Millisecond)).Get(context.Background(), ts.URL)
	assert.Error(t, err)
}

func TestClient_RetryOnServerError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(WithRetry(RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}))
	resp, err := client.Get(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, resp.Attempts)
}

func TestClient_RetryExhaustedReturnsLastResponse(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(WithRetry(RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond}))
	resp, err := client.Get(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(WithRetry(RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond}))
	resp, err := client.Get(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.False(t, resp.IsSuccess())
	assert.False(t, resp.retryable())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResponse_JSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		}
	}))
	defer ts.Close()

	var out struct {
		Status string `json:"status"`
	}
	resp, err := NewClient().Get(context.Background(), ts.URL)
	require.NoError(t, err)
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "healthy", out.Status)

	resp, err = NewClient().Head(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Error(t, resp.JSON(&out))
}

func TestSettingsOverlay_RequestOverridesClient(t *testing.T) {
	base := buildSettings([]Option{WithTimeout(5 * time.Second), WithHeader("A", "1"), WithQuery("q", "1"), WithRetry(DefaultRetryPolicy())})
	req := buildSettings([]Option{WithHeader("A", "2"), WithQuery("q", "2"), DisableRetry(), nil})

	merged := base.overlay(req)
	assert.Equal(t, 5*time.Second, merged.timeout)
	assert.Equal(t, "2", merged.header.Get("A"))
	assert.Equal(t, []string{"1", "2"}, merged.query["q"])
	require.NotNil(t, merged.retry)
	assert.Equal(t, uint64(0), merged.retry.MaxRetries)

	// the client-level settings are left untouched
	assert.Equal(t, "1", base.header.Get("A"))
	assert.Equal(t, uint64(3), base.retry.MaxRetries)
}

func TestRequest_QueryMerging(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHeader("apikey", "secret"), WithHeader("Prefer", "ignored"), DisableRetry())
	req := NewRequest(http.MethodHead, "/rest/v1/sessions?select=*").
		WithHeader("Prefer", "count=exact").
		WithQuery("created_at", "gte.2024-03-08").
		WithQuery("created_at", "lt.2024-03-09")

	_, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "created_at=gte.2024-03-08&created_at=lt.2024-03-09&select=%2A", got)
}

func TestRequest_InvalidURL(t *testing.T) {
	_, err := NewClient(DisableRetry()).Do(context.Background(), NewRequest(http.MethodGet, "http://[::1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build http request failed")
}
